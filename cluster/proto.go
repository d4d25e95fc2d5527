package cluster

import (
	"time"

	"github.com/google/uuid"
	"github.com/kestrelhq/trendwatch/core"
)

// ContextualizedSignal bundles a new signal with its semantically similar
// neighbors, as produced by a nearest-neighbor lookup against historical
// signals.
type ContextualizedSignal struct {
	Signal         *core.Signal
	SimilarSignals []*core.Signal
}

// BuildProtoCluster forms the transient unit of evidence for one signal:
// the triggering signal followed by all of its neighbors, under a fresh
// cluster id. An empty neighbor list still yields a valid singleton cluster.
func BuildProtoCluster(ctx ContextualizedSignal) *core.ProtoCluster {
	signals := make([]*core.Signal, 0, 1+len(ctx.SimilarSignals))
	signals = append(signals, ctx.Signal)
	signals = append(signals, ctx.SimilarSignals...)

	return &core.ProtoCluster{
		Id:          uuid.NewString(),
		Signals:     signals,
		SignalCount: len(signals),
		CreatedAt:   time.Now().UTC(),
	}
}
