package storage

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/trendwatch/core"
)

func exportedCandidate(id string) *core.CandidateCluster {
	created := time.Date(2026, 4, 12, 9, 30, 0, 0, time.UTC)
	return &core.CandidateCluster{
		Id: id,
		Signals: []*core.Signal{
			{
				Id:        id + "-sig-1",
				Text:      "Quantum repeater trials expand",
				Timestamp: created.Add(-2 * time.Hour),
				Source:    "research_blog",
				Domain:    "emerging_technology",
				Subdomain: "quantum",
				Metadata:  map[string]string{"confidence_hint": "0.7"},
				Vector:    []float32{1, 0, 0},
			},
			{
				Id:        id + "-sig-2",
				Text:      "Metro quantum links announced",
				Timestamp: created.Add(-1 * time.Hour),
				Source:    "tech_news",
				Domain:    "emerging_technology",
				Subdomain: "quantum",
				Vector:    []float32{0.9, 0.1, 0},
			},
		},
		Embeddings:  [][]float32{{1, 0, 0}, {0.9, 0.1, 0}},
		Centroid:    []float32{0.95, 0.05, 0},
		SignalCount: 2,
		CreatedAt:   created,
		LastUpdated: created.Add(time.Hour),
		GrowthRatio: 2.0,
		Coherence:   0.81,
		CriticReport: &core.CriticReport{
			Confidence:        core.ConfidenceLow,
			Flags:             []string{"insufficient evidence"},
			RecommendedAction: core.ActionDemoteWait,
			Metrics: core.ClusterMetrics{
				SignalCount:     2,
				SourceDiversity: 2,
				Coherence:       0.81,
			},
		},
		ControllerDecision: &core.ControllerDecision{
			FinalAction:   core.ActionDemoteWait,
			DecisionTrace: "Low confidence → Demoted to wait state (only 2 signals)",
			Confidence:    core.ConfidenceLow,
			Flags:         []string{"insufficient evidence"},
		},
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	pool := []*core.CandidateCluster{
		exportedCandidate("c-1"),
		exportedCandidate("c-2"),
	}

	var buf bytes.Buffer
	require.NoError(t, ExportCandidates(&buf, pool))

	restored, err := ImportCandidates(&buf)
	require.NoError(t, err)
	require.Len(t, restored, 2)

	// Pool order survives the round trip.
	assert.Equal(t, "c-1", restored[0].Id)
	assert.Equal(t, "c-2", restored[1].Id)
	assert.Equal(t, pool[0], restored[0])
	assert.Equal(t, pool[1], restored[1])
}

func TestExportUsesSnakeCaseFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCandidates(&buf, []*core.CandidateCluster{exportedCandidate("c-1")}))

	out := buf.String()
	for _, field := range []string{
		`"cluster_id"`, `"signal_id"`, `"signal_count"`, `"created_at"`,
		`"last_updated"`, `"growth_ratio"`, `"critic_report"`,
		`"controller_decision"`, `"decision_trace"`, `"recommended_action"`,
	} {
		assert.Contains(t, out, field)
	}
}

func TestExportRejectsInvalidCandidate(t *testing.T) {
	bad := exportedCandidate("c-1")
	bad.SignalCount = 99

	var buf bytes.Buffer
	err := ExportCandidates(&buf, []*core.CandidateCluster{bad})
	assert.ErrorIs(t, err, core.ErrInvalidCluster)
}

func TestImportRejectsInvalidCandidate(t *testing.T) {
	bad := exportedCandidate("c-1")
	var buf bytes.Buffer
	require.NoError(t, ExportCandidates(&buf, []*core.CandidateCluster{bad}))

	tampered := strings.Replace(buf.String(), `"signal_count": 2`, `"signal_count": 7`, 1)
	_, err := ImportCandidates(strings.NewReader(tampered))
	assert.ErrorIs(t, err, core.ErrInvalidCluster)
}

func TestImportRejectsMalformedJSON(t *testing.T) {
	_, err := ImportCandidates(strings.NewReader("not json"))
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestExportImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultExportFile)
	pool := []*core.CandidateCluster{exportedCandidate("c-1")}

	require.NoError(t, ExportCandidatesFile(path, pool))

	restored, err := ImportCandidatesFile(path)
	require.NoError(t, err)
	require.Len(t, restored, 1)
	assert.Equal(t, pool[0], restored[0])
}

func TestExportImportSignals(t *testing.T) {
	signals := exportedCandidate("c-1").Signals

	var buf bytes.Buffer
	require.NoError(t, ExportSignals(&buf, signals))

	restored, err := ImportSignals(&buf)
	require.NoError(t, err)
	require.Len(t, restored, 2)
	assert.Equal(t, signals[0], restored[0])
	assert.Equal(t, signals[1], restored[1])
}

func TestImportSignalsRejectsInvalid(t *testing.T) {
	_, err := ImportSignals(strings.NewReader(`[{"signal_id": "", "text": "x"}]`))
	assert.ErrorIs(t, err, core.ErrInvalidSignal)
}

func TestImportMissingFileYieldsEmptyPool(t *testing.T) {
	restored, err := ImportCandidatesFile(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, restored)
}
