package scoring

import (
	"fmt"
	"log/slog"

	"github.com/kestrelhq/trendwatch/core"
)

// Controller turns critic reports into lifecycle decisions with a
// human-readable trace. Decisions are deterministic: the same report
// always yields a byte-identical trace.
type Controller struct {
	logger *slog.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller) error

// WithControllerLogger sets a custom logger.
// Default is slog.Default().
func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewController creates a controller.
func NewController(opts ...ControllerOption) (*Controller, error) {
	c := &Controller{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Decide maps a critic report onto a final lifecycle action.
//
// High confidence promotes, medium keeps the cluster as a candidate, and
// low demotes it to the wait state. The trace names the single most
// pressing issue for demotions so operators can read the decision log
// without the full report.
func (c *Controller) Decide(report *core.CriticReport) *core.ControllerDecision {
	var action core.Action
	var trace string

	switch report.Confidence {
	case core.ConfidenceHigh:
		action = core.ActionPromote
		trace = fmt.Sprintf("High confidence → Promoted to active (%d signals, %d sources, coherence %.2f)",
			report.Metrics.SignalCount, report.Metrics.SourceDiversity, report.Metrics.Coherence)

	case core.ConfidenceMedium:
		action = core.ActionKeepCandidate
		if report.HasFlag(FlagInsufficientEvidence) {
			trace = fmt.Sprintf("Medium confidence → Kept as candidate (only %d signals, waiting for more)",
				report.Metrics.SignalCount)
		} else {
			trace = "Medium confidence → Kept as candidate (tracking for future promotion)"
		}

	default:
		action = core.ActionDemoteWait
		trace = fmt.Sprintf("Low confidence → Demoted to wait state (%s)", c.primaryIssue(report))
	}

	decision := &core.ControllerDecision{
		FinalAction:   action,
		DecisionTrace: trace,
		Confidence:    report.Confidence,
		Flags:         report.Flags,
	}

	c.logger.Debug("controller decision",
		"confidence", report.Confidence,
		"action", action,
		"trace", trace)

	return decision
}

// primaryIssue picks the dominant reason for a demotion. Coherence problems
// outrank source diversity, which outranks evidence volume.
func (c *Controller) primaryIssue(report *core.CriticReport) string {
	switch {
	case report.HasFlag(FlagVeryLowCoherence) || report.HasFlag(FlagWeakCoherence):
		return fmt.Sprintf("coherence %.2f too low", report.Metrics.Coherence)
	case report.HasFlag(FlagSingleSource):
		return "single source only"
	case report.HasFlag(FlagInsufficientEvidence):
		return fmt.Sprintf("only %d signals", report.Metrics.SignalCount)
	default:
		return "waiting for future evidence"
	}
}
