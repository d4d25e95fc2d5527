// Package cluster implements the incremental cluster-evolution engine:
// proto-cluster formation from a signal and its semantic neighbors, greedy
// centroid-similarity merging of proto-clusters into a persisted candidate
// pool, and the coherence estimate used by the scoring layer.
//
// The engine performs no storage I/O; callers load the candidate pool,
// invoke Evolve, and persist the result. Evolve passes over the same pool
// must be serialized by the caller: the merge step reads, mutates and
// rewrites candidates, and concurrent writers would lose updates.
package cluster
