// Package scoring grades candidate clusters and decides their lifecycle.
//
// The Critic measures a cluster (signal count, source diversity, embedding
// coherence), raises diagnostic flags, and grades overall confidence. The
// Controller maps that report onto a final action (promote, keep as
// candidate, or demote to wait) together with a one-line decision trace.
//
// Both components are read-only over the cluster and deterministic, so
// re-running them over an unchanged pool produces identical output.
package scoring
