package scoring

import (
	"log/slog"

	"github.com/kestrelhq/trendwatch/cluster"
	"github.com/kestrelhq/trendwatch/core"
)

// Confidence gates. A cluster is high confidence only when all three hold;
// it is low confidence when evidence or coherence falls under the floor.
const (
	highSignalCount    = 10
	highCoherence      = 0.50
	highDiversity      = 2
	lowSignalCount     = 3
	lowCoherence       = 0.30
	weakCoherence      = 0.40
	flagHighCoherence  = 0.70
	flagDiversity      = 3
	flagStrongEvidence = 10
)

// Diagnostic flag values attached to critic reports. The controller keys
// its explanations off these exact strings.
const (
	FlagVeryLowCoherence     = "very low coherence"
	FlagWeakCoherence        = "weak coherence"
	FlagHighCoherence        = "high coherence"
	FlagSingleSource         = "single source"
	FlagMultiSourceValidated = "multi-source validated"
	FlagInsufficientEvidence = "insufficient evidence"
	FlagStrongEvidence       = "strong evidence"
)

// CoherenceFunc scores how tightly a set of embeddings clusters together.
type CoherenceFunc func(embeddings [][]float32) float64

// Critic evaluates candidate clusters and produces confidence reports.
// Evaluation is read-only and deterministic for a given cluster state.
type Critic struct {
	coherence CoherenceFunc
	logger    *slog.Logger
}

// CriticOption configures a Critic.
type CriticOption func(*Critic) error

// WithCoherenceFunc overrides the coherence scorer.
// Default is cluster.Coherence.
func WithCoherenceFunc(fn CoherenceFunc) CriticOption {
	return func(c *Critic) error {
		if fn == nil {
			return ErrCoherenceFuncRequired
		}
		c.coherence = fn
		return nil
	}
}

// WithCriticLogger sets a custom logger.
// Default is slog.Default().
func WithCriticLogger(logger *slog.Logger) CriticOption {
	return func(c *Critic) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewCritic creates a critic.
func NewCritic(opts ...CriticOption) (*Critic, error) {
	c := &Critic{
		coherence: cluster.Coherence,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Evaluate measures a candidate cluster and grades its confidence.
//
// The report carries the raw metrics, the diagnostic flags raised by each
// metric, the overall confidence grade, and a recommended action. The
// candidate itself is not modified.
func (c *Critic) Evaluate(candidate *core.CandidateCluster) *core.CriticReport {
	// Evolution zeroes the cached coherence whenever membership changes,
	// so a non-zero value is current and saves the pairwise scan.
	coherence := candidate.Coherence
	if coherence == 0 {
		coherence = c.coherence(candidate.Embeddings)
	}

	metrics := core.ClusterMetrics{
		SignalCount:     candidate.SignalCount,
		SourceDiversity: sourceDiversity(candidate.Signals),
		Coherence:       coherence,
	}

	flags := raiseFlags(metrics)
	confidence := grade(metrics)

	report := &core.CriticReport{
		Confidence:        confidence,
		Flags:             flags,
		RecommendedAction: recommend(confidence, metrics.SignalCount),
		Metrics:           metrics,
	}

	c.logger.Debug("evaluated candidate cluster",
		"cluster", candidate.Id,
		"signals", metrics.SignalCount,
		"sources", metrics.SourceDiversity,
		"coherence", metrics.Coherence,
		"confidence", confidence)

	return report
}

func sourceDiversity(signals []*core.Signal) int {
	seen := make(map[string]struct{}, len(signals))
	for _, s := range signals {
		seen[s.Source] = struct{}{}
	}
	return len(seen)
}

func raiseFlags(m core.ClusterMetrics) []string {
	var flags []string

	switch {
	case m.Coherence < lowCoherence:
		flags = append(flags, FlagVeryLowCoherence)
	case m.Coherence < weakCoherence:
		flags = append(flags, FlagWeakCoherence)
	case m.Coherence >= flagHighCoherence:
		flags = append(flags, FlagHighCoherence)
	}

	if m.SourceDiversity == 1 {
		flags = append(flags, FlagSingleSource)
	} else if m.SourceDiversity >= flagDiversity {
		flags = append(flags, FlagMultiSourceValidated)
	}

	if m.SignalCount < lowSignalCount {
		flags = append(flags, FlagInsufficientEvidence)
	} else if m.SignalCount >= flagStrongEvidence {
		flags = append(flags, FlagStrongEvidence)
	}

	return flags
}

func grade(m core.ClusterMetrics) core.Confidence {
	if m.SignalCount >= highSignalCount &&
		m.Coherence >= highCoherence &&
		m.SourceDiversity >= highDiversity {
		return core.ConfidenceHigh
	}
	if m.SignalCount < lowSignalCount || m.Coherence < lowCoherence {
		return core.ConfidenceLow
	}
	return core.ConfidenceMedium
}

func recommend(confidence core.Confidence, signalCount int) core.Action {
	switch confidence {
	case core.ConfidenceHigh:
		return core.ActionPromote
	case core.ConfidenceMedium:
		if signalCount >= lowSignalCount {
			return core.ActionKeepCandidate
		}
		return core.ActionDemoteWait
	default:
		return core.ActionDemoteWait
	}
}
