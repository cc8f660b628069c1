// Package retrieval wraps the vector store with a two-stage search:
// semantic nearest-neighbor lookup followed by a deterministic, local
// re-ranking pass that folds in keyword overlap and content-type
// preferences.
package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/sabia-ai/sabia/internal/knowledge"
)

// SearchResult is one retrieved document with its re-ranking scores.
// Ephemeral: produced per query, never persisted.
type SearchResult struct {
	Content        string
	Metadata       map[string]string
	RelevanceScore float64
	KeywordMatches int
}

// Collection is the query surface of the vector store.
// *knowledge.Collection satisfies it.
type Collection interface {
	Query(ctx context.Context, text string, k int) (knowledge.QueryResult, error)
}

// Content-type preference terms. A query mentioning one of these lifts
// results of the matching type. Checked as substrings of the lowercased
// query, unlike the keyword bonus which counts whole-token overlap.
var (
	exerciseTerms = []string{"exercise", "practice", "question"}
	videoTerms    = []string{"video", "watch", "tutorial"}
	textTerms     = []string{"explain", "definition", "concept"}
)

const (
	baseScore        = 0.8
	keywordBonusCap  = 0.3
	keywordBonusStep = 0.1
)

// Engine runs searches and re-ranking.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Search runs one nearest-neighbor lookup for k results. Any backend
// error is logged and yields an empty slice; callers treat empty as
// "no matches", never as a distinguishable failure.
func (e *Engine) Search(ctx context.Context, coll Collection, query string, k int) []SearchResult {
	result, err := coll.Query(ctx, query, k)
	if err != nil {
		e.logger.Error("search failed", "query", query, "error", err)
		return nil
	}

	docs := make([]SearchResult, 0, len(result.Documents))
	for i, content := range result.Documents {
		var metadata map[string]string
		if i < len(result.Metadatas) {
			metadata = result.Metadatas[i]
		}
		docs = append(docs, SearchResult{Content: content, Metadata: metadata})
	}

	e.logger.Debug("search complete", "query", query, "results", len(docs))
	return docs
}

// Rerank re-scores results locally, no network calls. Score =
// base 0.8 + keyword overlap bonus (0.1 per shared whitespace token,
// capped at 0.3) + content-type bonus. The sort is stable and
// descending, so ties keep their original relative order; the top topK
// survive. Empty input yields empty output without scoring.
func (e *Engine) Rerank(query string, results []SearchResult, topK int) []SearchResult {
	if len(results) == 0 {
		return nil
	}

	queryLower := strings.ToLower(query)
	queryTerms := tokenSet(queryLower)

	scored := make([]SearchResult, len(results))
	for i, result := range results {
		overlap := 0
		for term := range tokenSet(strings.ToLower(result.Content)) {
			if _, ok := queryTerms[term]; ok {
				overlap++
			}
		}
		keywordBonus := min(float64(overlap)*keywordBonusStep, keywordBonusCap)

		typeBonus := 0.0
		switch result.Metadata["type"] {
		case "exercise":
			if containsAny(queryLower, exerciseTerms) {
				typeBonus = 0.2
			}
		case "video":
			if containsAny(queryLower, videoTerms) {
				typeBonus = 0.2
			}
		case "text":
			if containsAny(queryLower, textTerms) {
				typeBonus = 0.1
			}
		}

		scored[i] = result
		scored[i].RelevanceScore = baseScore + keywordBonus + typeBonus
		scored[i].KeywordMatches = overlap
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RelevanceScore > scored[j].RelevanceScore
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	e.logger.Debug("reranked results", "query", query, "returned", len(scored))
	return scored
}

// SearchAndRerank composes Search and Rerank; an empty search
// short-circuits without invoking the scorer.
func (e *Engine) SearchAndRerank(ctx context.Context, coll Collection, query string, n, topK int) []SearchResult {
	initial := e.Search(ctx, coll, query, n)
	if len(initial) == 0 {
		return nil
	}
	return e.Rerank(query, initial, topK)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(s) {
		set[token] = struct{}{}
	}
	return set
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
