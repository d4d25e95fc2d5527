package storage

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/kestrelhq/trendwatch/core"
)

// DefaultExportFile is the conventional name for candidate pool exports.
const DefaultExportFile = "candidate_clusters.json"

// Exported JSON uses snake_case field names so dumps stay readable and
// diffable; the binary record format in serialization.go remains the
// storage format of record.

type exportSignal struct {
	SignalId  string            `json:"signal_id"`
	Text      string            `json:"text"`
	Timestamp time.Time         `json:"timestamp"`
	Source    string            `json:"source"`
	Domain    string            `json:"domain"`
	Subdomain string            `json:"subdomain"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Vector    []float32         `json:"vector,omitempty"`
}

type exportMetrics struct {
	SignalCount     int     `json:"signal_count"`
	SourceDiversity int     `json:"source_diversity"`
	Coherence       float64 `json:"coherence"`
}

type exportCriticReport struct {
	Confidence        core.Confidence `json:"confidence"`
	Flags             []string        `json:"flags,omitempty"`
	RecommendedAction core.Action     `json:"recommended_action"`
	Metrics           exportMetrics   `json:"metrics"`
}

type exportControllerDecision struct {
	FinalAction   core.Action     `json:"final_action"`
	DecisionTrace string          `json:"decision_trace"`
	Confidence    core.Confidence `json:"confidence"`
	Flags         []string        `json:"flags,omitempty"`
}

type exportCandidate struct {
	ClusterId          string                    `json:"cluster_id"`
	Signals            []exportSignal            `json:"signals"`
	Embeddings         [][]float32               `json:"embeddings,omitempty"`
	Centroid           []float32                 `json:"centroid,omitempty"`
	SignalCount        int                       `json:"signal_count"`
	CreatedAt          time.Time                 `json:"created_at"`
	LastUpdated        time.Time                 `json:"last_updated"`
	GrowthRatio        float64                   `json:"growth_ratio"`
	Coherence          float64                   `json:"coherence,omitempty"`
	CriticReport       *exportCriticReport       `json:"critic_report,omitempty"`
	ControllerDecision *exportControllerDecision `json:"controller_decision,omitempty"`
}

// ExportCandidates writes the candidate pool as indented JSON. Pool order
// is preserved; importing the file restores the same greedy merge order.
func ExportCandidates(w io.Writer, candidates []*core.CandidateCluster) error {
	out := make([]exportCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if err := core.ValidateCandidateCluster(candidate); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		out = append(out, toExportCandidate(candidate))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return nil
}

// ImportCandidates reads a pool previously written by ExportCandidates.
// Every imported candidate is validated; a single bad record fails the
// whole import rather than loading a partial pool.
func ImportCandidates(r io.Reader) ([]*core.CandidateCluster, error) {
	var in []exportCandidate
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}

	candidates := make([]*core.CandidateCluster, 0, len(in))
	for _, exported := range in {
		candidate := fromExportCandidate(exported)
		if err := core.ValidateCandidateCluster(candidate); err != nil {
			return nil, fmt.Errorf("import %q: %w", exported.ClusterId, err)
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// ExportCandidatesFile writes the pool to the named file, creating or
// truncating it.
func ExportCandidatesFile(path string, candidates []*core.CandidateCluster) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ExportCandidates(f, candidates); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ImportCandidatesFile reads a pool from the named file. A missing file is
// not an error; it yields an empty pool.
func ImportCandidatesFile(path string) ([]*core.CandidateCluster, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return ImportCandidates(f)
}

// ExportSignals writes signals as indented JSON, in the given order.
func ExportSignals(w io.Writer, signals []*core.Signal) error {
	out := make([]exportSignal, 0, len(signals))
	for _, s := range signals {
		if err := core.ValidateSignal(s); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		out = append(out, toExportSignal(s))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return nil
}

// ImportSignals reads a signal batch previously written by ExportSignals
// or prepared by hand. Every signal is validated before any are returned.
func ImportSignals(r io.Reader) ([]*core.Signal, error) {
	var in []exportSignal
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}

	signals := make([]*core.Signal, 0, len(in))
	for _, exported := range in {
		signal := fromExportSignal(exported)
		if err := core.ValidateSignal(signal); err != nil {
			return nil, fmt.Errorf("import %q: %w", exported.SignalId, err)
		}
		signals = append(signals, signal)
	}
	return signals, nil
}

// ImportSignalsFile reads a signal batch from the named file.
func ImportSignalsFile(path string) ([]*core.Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ImportSignals(f)
}

func toExportSignal(s *core.Signal) exportSignal {
	return exportSignal{
		SignalId:  s.Id,
		Text:      s.Text,
		Timestamp: s.Timestamp,
		Source:    s.Source,
		Domain:    s.Domain,
		Subdomain: s.Subdomain,
		Metadata:  s.Metadata,
		Vector:    s.Vector,
	}
}

func fromExportSignal(s exportSignal) *core.Signal {
	return &core.Signal{
		Id:        s.SignalId,
		Text:      s.Text,
		Timestamp: s.Timestamp,
		Source:    s.Source,
		Domain:    s.Domain,
		Subdomain: s.Subdomain,
		Metadata:  s.Metadata,
		Vector:    s.Vector,
	}
}

func toExportCandidate(c *core.CandidateCluster) exportCandidate {
	signals := make([]exportSignal, 0, len(c.Signals))
	for _, s := range c.Signals {
		signals = append(signals, toExportSignal(s))
	}

	exported := exportCandidate{
		ClusterId:   c.Id,
		Signals:     signals,
		Embeddings:  c.Embeddings,
		Centroid:    c.Centroid,
		SignalCount: c.SignalCount,
		CreatedAt:   c.CreatedAt,
		LastUpdated: c.LastUpdated,
		GrowthRatio: c.GrowthRatio,
		Coherence:   c.Coherence,
	}

	if c.CriticReport != nil {
		exported.CriticReport = &exportCriticReport{
			Confidence:        c.CriticReport.Confidence,
			Flags:             c.CriticReport.Flags,
			RecommendedAction: c.CriticReport.RecommendedAction,
			Metrics: exportMetrics{
				SignalCount:     c.CriticReport.Metrics.SignalCount,
				SourceDiversity: c.CriticReport.Metrics.SourceDiversity,
				Coherence:       c.CriticReport.Metrics.Coherence,
			},
		}
	}
	if c.ControllerDecision != nil {
		exported.ControllerDecision = &exportControllerDecision{
			FinalAction:   c.ControllerDecision.FinalAction,
			DecisionTrace: c.ControllerDecision.DecisionTrace,
			Confidence:    c.ControllerDecision.Confidence,
			Flags:         c.ControllerDecision.Flags,
		}
	}
	return exported
}

func fromExportCandidate(exported exportCandidate) *core.CandidateCluster {
	signals := make([]*core.Signal, 0, len(exported.Signals))
	for _, s := range exported.Signals {
		signals = append(signals, fromExportSignal(s))
	}

	candidate := &core.CandidateCluster{
		Id:          exported.ClusterId,
		Signals:     signals,
		Embeddings:  exported.Embeddings,
		Centroid:    exported.Centroid,
		SignalCount: exported.SignalCount,
		CreatedAt:   exported.CreatedAt,
		LastUpdated: exported.LastUpdated,
		GrowthRatio: exported.GrowthRatio,
		Coherence:   exported.Coherence,
	}

	if exported.CriticReport != nil {
		candidate.CriticReport = &core.CriticReport{
			Confidence:        exported.CriticReport.Confidence,
			Flags:             exported.CriticReport.Flags,
			RecommendedAction: exported.CriticReport.RecommendedAction,
			Metrics: core.ClusterMetrics{
				SignalCount:     exported.CriticReport.Metrics.SignalCount,
				SourceDiversity: exported.CriticReport.Metrics.SourceDiversity,
				Coherence:       exported.CriticReport.Metrics.Coherence,
			},
		}
	}
	if exported.ControllerDecision != nil {
		candidate.ControllerDecision = &core.ControllerDecision{
			FinalAction:   exported.ControllerDecision.FinalAction,
			DecisionTrace: exported.ControllerDecision.DecisionTrace,
			Confidence:    exported.ControllerDecision.Confidence,
			Flags:         exported.ControllerDecision.Flags,
		}
	}
	return candidate
}
