package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/kestrelhq/trendwatch/ai"
	"github.com/kestrelhq/trendwatch/core"
)

// Score weighting and acceptance gates for hybrid search. A cluster is a
// match when at least one channel clears its floor and the blended score
// clears the caller's minimum.
const (
	// DefaultMinFinalScore is the blended-score cutoff applied when the
	// caller passes a non-positive minimum.
	DefaultMinFinalScore = 0.35

	// DefaultSimilarityThreshold is the legacy SearchClusters threshold.
	DefaultSimilarityThreshold = 0.55

	semanticWeight = 0.7
	lexicalWeight  = 0.3
	semanticFloor  = 0.40
	lexicalFloor   = 0.15

	// activeSignalCount separates established clusters from fresh ones
	// in the result labels.
	activeSignalCount = 3
)

// Searcher ranks candidate clusters against free-text queries by blending
// centroid similarity with keyword overlap. It performs no storage I/O;
// callers pass the pool to search over.
type Searcher struct {
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a searcher over the given embedder.
func NewSearcher(embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SearchHybrid ranks the candidates against the query.
//
// Each cluster receives a semantic score (cosine similarity between the
// query embedding and the cluster centroid) and a lexical score (fraction
// of query keywords present in the cluster's signal texts). The final score
// blends them 70/30. A cluster is kept when either channel clears its floor
// AND the final score reaches minFinalScore; pass a non-positive minimum to
// use DefaultMinFinalScore. Results are sorted by final score, ties broken
// by signal count.
//
// A query embedding failure is soft: it is logged and an empty result set
// is returned with a nil error, so a flaky provider degrades search rather
// than breaking callers.
func (s *Searcher) SearchHybrid(ctx context.Context, query string, candidates []*core.CandidateCluster, minFinalScore float64) ([]*core.ClusterMatch, error) {
	return s.SearchHybridWithMonitor(ctx, query, candidates, minFinalScore, nil)
}

// SearchHybridWithMonitor runs SearchHybrid with monitoring.
// The monitor receives callbacks at each stage of the search process.
// Pass nil for no monitoring.
func (s *Searcher) SearchHybridWithMonitor(ctx context.Context, query string, candidates []*core.CandidateCluster, minFinalScore float64, monitor SearchMonitor) ([]*core.ClusterMatch, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	if minFinalScore <= 0 {
		minFinalScore = DefaultMinFinalScore
	}

	monitor.Start(query)

	if strings.TrimSpace(query) == "" {
		matches := []*core.ClusterMatch{}
		monitor.Finish(matches)
		return matches, nil
	}

	queryVec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed, returning no matches",
			"query", query,
			"error", err)
		matches := []*core.ClusterMatch{}
		monitor.Finish(matches)
		return matches, nil
	}
	monitor.AfterQueryEmbedding(queryVec)

	queryKeywords := extractKeywords(query)
	monitor.AfterKeywordExtraction(keywordList(queryKeywords))

	matches := make([]*core.ClusterMatch, 0, len(candidates))
	for _, candidate := range candidates {
		// Clusters awaiting centroid backfill cannot be scored; skipping
		// them also keeps the lexical channel from matching alone.
		if len(candidate.Centroid) == 0 {
			continue
		}

		semantic := core.CosineSimilarity(queryVec, candidate.Centroid)
		lexical := keywordOverlap(queryKeywords, clusterKeywords(candidate))
		final := semanticWeight*semantic + lexicalWeight*lexical

		accepted := (semantic >= semanticFloor || lexical >= lexicalFloor) && final >= minFinalScore
		monitor.ScoredCluster(candidate.Id, semantic, lexical, final, accepted)
		if !accepted {
			continue
		}

		matches = append(matches, &core.ClusterMatch{
			Cluster:       candidate,
			SemanticScore: semantic,
			LexicalScore:  lexical,
			FinalScore:    final,
			ClusterType:   clusterType(candidate),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].FinalScore != matches[j].FinalScore {
			return matches[i].FinalScore > matches[j].FinalScore
		}
		return matches[i].Cluster.SignalCount > matches[j].Cluster.SignalCount
	})

	s.logger.Debug("hybrid search complete",
		"query", query,
		"candidates", len(candidates),
		"matches", len(matches),
		"min_final_score", minFinalScore)
	monitor.Finish(matches)

	return matches, nil
}

// SearchClusters is the pre-hybrid entry point kept for callers that think
// in terms of a single similarity threshold. It maps the threshold onto the
// blended-score cutoff (threshold scaled by the semantic weight) and runs
// the hybrid search. Pass a non-positive threshold to use
// DefaultSimilarityThreshold.
func (s *Searcher) SearchClusters(ctx context.Context, query string, candidates []*core.CandidateCluster, threshold float64) ([]*core.ClusterMatch, error) {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	matches, err := s.SearchHybrid(ctx, query, candidates, threshold*semanticWeight)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		m.SimilarityScore = m.SemanticScore
	}
	return matches, nil
}

// clusterKeywords extracts keywords from all of the cluster's signal texts.
func clusterKeywords(candidate *core.CandidateCluster) map[string]struct{} {
	texts := make([]string, 0, len(candidate.Signals))
	for _, sig := range candidate.Signals {
		texts = append(texts, sig.Text)
	}
	return extractKeywords(strings.Join(texts, " "))
}

func clusterType(candidate *core.CandidateCluster) string {
	if candidate.SignalCount >= activeSignalCount {
		return "Active"
	}
	return "Candidate"
}
