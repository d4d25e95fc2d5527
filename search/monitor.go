package search

import "github.com/kestrelhq/trendwatch/core"

// SearchMonitor provides hooks to observe the search process.
// Implementations can use these callbacks to debug or explain ranking.
type SearchMonitor interface {
	// Start is called when a search begins, with the raw query.
	Start(query string)

	// AfterQueryEmbedding is called once the query vector is available.
	AfterQueryEmbedding(vector []float32)

	// AfterKeywordExtraction is called with the query's keyword set.
	AfterKeywordExtraction(keywords []string)

	// ScoredCluster is called for every cluster considered, including
	// ones the gates later reject. accepted reports the gate outcome.
	ScoredCluster(clusterId string, semantic, lexical, final float64, accepted bool)

	// Finish is called with the final ranked matches.
	Finish(matches []*core.ClusterMatch)
}

// noopMonitor is a no-op implementation of SearchMonitor
// used when no monitor is provided.
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                      {}
func (n *noopMonitor) AfterQueryEmbedding(_ []float32)                     {}
func (n *noopMonitor) AfterKeywordExtraction(_ []string)                   {}
func (n *noopMonitor) ScoredCluster(_ string, _, _, _ float64, _ bool)     {}
func (n *noopMonitor) Finish(_ []*core.ClusterMatch)                       {}
