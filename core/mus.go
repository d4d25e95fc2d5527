package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the domain records persisted by the storage layer.
// Timestamps are stored as Unix microseconds, so sub-microsecond precision
// is lost on a round trip.

var (
	// VectorMUS serializes a single embedding vector.
	VectorMUS = ord.NewSliceSer[float32](raw.Float32)

	// EmbeddingsMUS serializes the per-signal embedding list of a cluster.
	EmbeddingsMUS = ord.NewSliceSer[[]float32](VectorMUS)

	metadataMUS = ord.NewMapSer[string, string](ord.String, ord.String)
	flagsMUS    = ord.NewSliceSer[string](ord.String)

	// SignalMUS serializes a Signal.
	SignalMUS = signalMUS{}

	// CriticReportMUS serializes a CriticReport.
	CriticReportMUS = criticReportMUS{}

	// ControllerDecisionMUS serializes a ControllerDecision.
	ControllerDecisionMUS = controllerDecisionMUS{}

	// CandidateClusterMUS serializes a CandidateCluster.
	CandidateClusterMUS = candidateClusterMUS{}
)

func marshalTime(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micro, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micro).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

type signalMUS struct{}

func (signalMUS) Marshal(v Signal, bs []byte) (n int) {
	n = ord.String.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Text, bs[n:])
	n += marshalTime(v.Timestamp, bs[n:])
	n += ord.String.Marshal(v.Source, bs[n:])
	n += ord.String.Marshal(v.Domain, bs[n:])
	n += ord.String.Marshal(v.Subdomain, bs[n:])
	n += metadataMUS.Marshal(v.Metadata, bs[n:])
	n += VectorMUS.Marshal(v.Vector, bs[n:])
	return
}

func (signalMUS) Unmarshal(bs []byte) (v Signal, n int, err error) {
	var n1 int
	if v.Id, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Timestamp, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Source, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Domain, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Subdomain, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Metadata, n1, err = metadataMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Vector, n1, err = VectorMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	// Absent collections round-trip as nil, not as empty.
	if len(v.Metadata) == 0 {
		v.Metadata = nil
	}
	if len(v.Vector) == 0 {
		v.Vector = nil
	}
	return
}

func (signalMUS) Size(v Signal) (size int) {
	size = ord.String.Size(v.Id)
	size += ord.String.Size(v.Text)
	size += sizeTime(v.Timestamp)
	size += ord.String.Size(v.Source)
	size += ord.String.Size(v.Domain)
	size += ord.String.Size(v.Subdomain)
	size += metadataMUS.Size(v.Metadata)
	size += VectorMUS.Size(v.Vector)
	return
}

func (s signalMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type criticReportMUS struct{}

func (criticReportMUS) Marshal(v CriticReport, bs []byte) (n int) {
	n = ord.String.Marshal(string(v.Confidence), bs)
	n += flagsMUS.Marshal(v.Flags, bs[n:])
	n += ord.String.Marshal(string(v.RecommendedAction), bs[n:])
	n += varint.Int.Marshal(v.Metrics.SignalCount, bs[n:])
	n += varint.Int.Marshal(v.Metrics.SourceDiversity, bs[n:])
	n += raw.Float64.Marshal(v.Metrics.Coherence, bs[n:])
	return
}

func (criticReportMUS) Unmarshal(bs []byte) (v CriticReport, n int, err error) {
	var (
		n1 int
		s  string
	)
	if s, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.Confidence = Confidence(s)
	if v.Flags, n1, err = flagsMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if s, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.RecommendedAction = Action(s)
	if v.Metrics.SignalCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Metrics.SourceDiversity, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Metrics.Coherence, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if len(v.Flags) == 0 {
		v.Flags = nil
	}
	return
}

func (criticReportMUS) Size(v CriticReport) (size int) {
	size = ord.String.Size(string(v.Confidence))
	size += flagsMUS.Size(v.Flags)
	size += ord.String.Size(string(v.RecommendedAction))
	size += varint.Int.Size(v.Metrics.SignalCount)
	size += varint.Int.Size(v.Metrics.SourceDiversity)
	size += raw.Float64.Size(v.Metrics.Coherence)
	return
}

func (s criticReportMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type controllerDecisionMUS struct{}

func (controllerDecisionMUS) Marshal(v ControllerDecision, bs []byte) (n int) {
	n = ord.String.Marshal(string(v.FinalAction), bs)
	n += ord.String.Marshal(v.DecisionTrace, bs[n:])
	n += ord.String.Marshal(string(v.Confidence), bs[n:])
	n += flagsMUS.Marshal(v.Flags, bs[n:])
	return
}

func (controllerDecisionMUS) Unmarshal(bs []byte) (v ControllerDecision, n int, err error) {
	var (
		n1 int
		s  string
	)
	if s, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.FinalAction = Action(s)
	if v.DecisionTrace, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if s, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.Confidence = Confidence(s)
	if v.Flags, n1, err = flagsMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if len(v.Flags) == 0 {
		v.Flags = nil
	}
	return
}

func (controllerDecisionMUS) Size(v ControllerDecision) (size int) {
	size = ord.String.Size(string(v.FinalAction))
	size += ord.String.Size(v.DecisionTrace)
	size += ord.String.Size(string(v.Confidence))
	size += flagsMUS.Size(v.Flags)
	return
}

func (s controllerDecisionMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type candidateClusterMUS struct{}

func (candidateClusterMUS) Marshal(v CandidateCluster, bs []byte) (n int) {
	n = ord.String.Marshal(v.Id, bs)
	n += varint.Int.Marshal(len(v.Signals), bs[n:])
	for _, sig := range v.Signals {
		n += SignalMUS.Marshal(*sig, bs[n:])
	}
	n += EmbeddingsMUS.Marshal(v.Embeddings, bs[n:])
	n += VectorMUS.Marshal(v.Centroid, bs[n:])
	n += varint.Int.Marshal(v.SignalCount, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	n += marshalTime(v.LastUpdated, bs[n:])
	n += raw.Float64.Marshal(v.GrowthRatio, bs[n:])
	n += raw.Float64.Marshal(v.Coherence, bs[n:])
	n += ord.Bool.Marshal(v.CriticReport != nil, bs[n:])
	if v.CriticReport != nil {
		n += CriticReportMUS.Marshal(*v.CriticReport, bs[n:])
	}
	n += ord.Bool.Marshal(v.ControllerDecision != nil, bs[n:])
	if v.ControllerDecision != nil {
		n += ControllerDecisionMUS.Marshal(*v.ControllerDecision, bs[n:])
	}
	return
}

func (candidateClusterMUS) Unmarshal(bs []byte) (v CandidateCluster, n int, err error) {
	var n1 int
	if v.Id, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	var count int
	if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if count > 0 {
		v.Signals = make([]*Signal, 0, count)
	}
	for i := 0; i < count; i++ {
		var sig Signal
		if sig, n1, err = SignalMUS.Unmarshal(bs[n:]); err != nil {
			return v, n + n1, err
		}
		n += n1
		v.Signals = append(v.Signals, &sig)
	}
	if v.Embeddings, n1, err = EmbeddingsMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Centroid, n1, err = VectorMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if len(v.Embeddings) == 0 {
		v.Embeddings = nil
	}
	if len(v.Centroid) == 0 {
		v.Centroid = nil
	}
	if v.SignalCount, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.CreatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.LastUpdated, n1, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.GrowthRatio, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Coherence, n1, err = raw.Float64.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var present bool
	if present, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if present {
		var report CriticReport
		if report, n1, err = CriticReportMUS.Unmarshal(bs[n:]); err != nil {
			return v, n + n1, err
		}
		n += n1
		v.CriticReport = &report
	}
	if present, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if present {
		var decision ControllerDecision
		if decision, n1, err = ControllerDecisionMUS.Unmarshal(bs[n:]); err != nil {
			return v, n + n1, err
		}
		n += n1
		v.ControllerDecision = &decision
	}
	return
}

func (candidateClusterMUS) Size(v CandidateCluster) (size int) {
	size = ord.String.Size(v.Id)
	size += varint.Int.Size(len(v.Signals))
	for _, sig := range v.Signals {
		size += SignalMUS.Size(*sig)
	}
	size += EmbeddingsMUS.Size(v.Embeddings)
	size += VectorMUS.Size(v.Centroid)
	size += varint.Int.Size(v.SignalCount)
	size += sizeTime(v.CreatedAt)
	size += sizeTime(v.LastUpdated)
	size += raw.Float64.Size(v.GrowthRatio)
	size += raw.Float64.Size(v.Coherence)
	size += ord.Bool.Size(v.CriticReport != nil)
	if v.CriticReport != nil {
		size += CriticReportMUS.Size(*v.CriticReport)
	}
	size += ord.Bool.Size(v.ControllerDecision != nil)
	if v.ControllerDecision != nil {
		size += ControllerDecisionMUS.Size(*v.ControllerDecision)
	}
	return
}

func (s candidateClusterMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}
