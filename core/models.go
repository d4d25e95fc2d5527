package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// HashText returns a deterministic hex key for text content using BLAKE2b.
// Identical content always produces the same key; used for cache keys.
func HashText(text string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Confidence classifies the evidentiary strength of a cluster.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Action is a cluster lifecycle action recommended or decided during scoring.
type Action string

const (
	// ActionPromote marks a cluster ready for active display.
	ActionPromote Action = "promote"
	// ActionKeepCandidate keeps a cluster in the candidate pool for tracking.
	ActionKeepCandidate Action = "keep_candidate"
	// ActionDemoteWait parks a cluster until future evidence arrives.
	ActionDemoteWait Action = "demote_wait"
)

// Signal is a single short text observation from an upstream feed
// (news item, research snippet, policy note). Signals are immutable once
// ingested and referenced by id from clusters.
type Signal struct {
	Id        string
	Text      string
	Timestamp time.Time         // When the signal was originally published
	Source    string            // Feed or publisher the signal came from
	Domain    string            // Broad topical domain (e.g. "emerging_technology")
	Subdomain string            // Narrower topic within the domain
	Metadata  map[string]string // Optional metadata (e.g. "confidence_hint")
	Vector    []float32         // Embedding vector (populated by the pipeline)
}

// ProtoCluster is the transient unit of evidence formed from one signal and
// its semantic neighbors. It exists only for the duration of a single
// evolution pass; its content is merged into or becomes a CandidateCluster.
type ProtoCluster struct {
	Id          string
	Signals     []*Signal
	SignalCount int
	CreatedAt   time.Time
}

// CandidateCluster is a persisted evolving topical cluster.
//
// Invariants maintained by the evolution engine:
//   - SignalCount == len(Signals) == len(Embeddings)
//   - no two Signals share an id
//   - Centroid is always the arithmetic mean of Embeddings
//   - Id never changes once assigned
type CandidateCluster struct {
	Id          string
	Signals     []*Signal
	Embeddings  [][]float32 // Parallel to Signals
	Centroid    []float32
	SignalCount int
	CreatedAt   time.Time
	LastUpdated time.Time
	GrowthRatio float64
	Coherence   float64 // Cached mean pairwise similarity; 0 means not computed

	CriticReport       *CriticReport       // Last evaluation, if cached by the caller
	ControllerDecision *ControllerDecision // Last decision, if cached by the caller
}

// HasSignal reports whether the cluster already contains the signal id.
func (c *CandidateCluster) HasSignal(id string) bool {
	for _, s := range c.Signals {
		if s.Id == id {
			return true
		}
	}
	return false
}

// RecomputeCentroid refreshes the centroid from the current embeddings.
// Must be called after any mutation of Embeddings.
func (c *CandidateCluster) RecomputeCentroid() error {
	centroid, err := Centroid(c.Embeddings)
	if err != nil {
		return err
	}
	c.Centroid = centroid
	return nil
}

// ClusterMetrics holds the raw evidence metrics computed by the critic.
type ClusterMetrics struct {
	SignalCount     int
	SourceDiversity int
	Coherence       float64
}

// CriticReport is the critic's evaluation of a cluster. It is recomputed
// fresh on every evaluation pass; callers decide whether to cache it.
type CriticReport struct {
	Confidence        Confidence
	Flags             []string
	RecommendedAction Action
	Metrics           ClusterMetrics
}

// HasFlag reports whether the given flag was raised by the critic.
func (r *CriticReport) HasFlag(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// ControllerDecision is the controller's final lifecycle decision, derived
// deterministically from a CriticReport.
type ControllerDecision struct {
	FinalAction   Action
	DecisionTrace string
	Confidence    Confidence
	Flags         []string
}

// ClusterMatch is a hybrid search result for a single cluster.
type ClusterMatch struct {
	Cluster       *CandidateCluster
	SemanticScore float64
	LexicalScore  float64
	FinalScore    float64
	ClusterType   string // "Active" or "Candidate"

	// SimilarityScore aliases SemanticScore for callers of the legacy
	// single-threshold search path. Only populated by SearchClusters.
	SimilarityScore float64
}

// SignalMatch is a nearest-neighbor result for a single signal.
type SignalMatch struct {
	Signal *Signal
	Score  float64
}
