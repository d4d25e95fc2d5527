// Package core defines the domain model for trendwatch: signals, proto
// clusters, candidate clusters, critic reports and controller decisions,
// together with the vector primitives (cosine similarity, centroid) the
// clustering engine is built on, validation rules, and the MUS serializers
// used by the storage layer.
package core
