// Package ingestion runs batch passes over incoming signals.
//
// One pass embeds the batch, appends it to the signal log, contextualizes
// each signal with its nearest stored neighbors on a worker pool, builds
// proto-clusters, runs a single sequential evolution pass over the candidate
// pool, scores every candidate with the critic and controller, and persists
// the result. The pass returns a RunReport with the batch tallies.
//
// Pipelines are not safe for concurrent ProcessSignals calls on the same
// candidate pool; the Database facade serializes them.
package ingestion
