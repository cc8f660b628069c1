package retrieval

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/sabia-ai/sabia/internal/knowledge"
	"github.com/sabia-ai/sabia/internal/log"
)

// mockCollection implements Collection.
type mockCollection struct {
	result    knowledge.QueryResult
	err       error
	queries   []string
	lastK     int
	callCount int
}

func (m *mockCollection) Query(ctx context.Context, text string, k int) (knowledge.QueryResult, error) {
	m.callCount++
	m.queries = append(m.queries, text)
	m.lastK = k
	if m.err != nil {
		return knowledge.QueryResult{}, m.err
	}
	return m.result, nil
}

func scoreClose(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSearch(t *testing.T) {
	coll := &mockCollection{result: knowledge.QueryResult{
		Documents: []string{"HTML is a markup language"},
		Metadatas: []map[string]string{{"file": "html.txt", "type": "text"}},
	}}
	engine := NewEngine(log.NewNop())

	results := engine.Search(context.Background(), coll, "What is HTML?", 3)
	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want 1", len(results))
	}
	if results[0].Content != "HTML is a markup language" {
		t.Errorf("Content = %q", results[0].Content)
	}
	if results[0].Metadata["file"] != "html.txt" {
		t.Errorf("Metadata = %v", results[0].Metadata)
	}
	if coll.lastK != 3 {
		t.Errorf("k = %d, want 3", coll.lastK)
	}
}

func TestSearch_BackendError(t *testing.T) {
	coll := &mockCollection{err: errors.New("connection refused")}
	engine := NewEngine(log.NewNop())

	// Backend errors become empty results, never an error to the caller.
	results := engine.Search(context.Background(), coll, "anything", 5)
	if len(results) != 0 {
		t.Errorf("Search() = %v, want empty on backend error", results)
	}
}

func TestRerank_Empty(t *testing.T) {
	engine := NewEngine(log.NewNop())
	if got := engine.Rerank("any query", nil, 3); len(got) != 0 {
		t.Errorf("Rerank(empty) = %v, want empty", got)
	}
}

func TestRerank_ScoreFormula(t *testing.T) {
	engine := NewEngine(log.NewNop())

	// One shared token ("html") and no type-preference terms: 0.8 + 0.1.
	results := engine.Rerank("What is html?", []SearchResult{
		{Content: "html is a markup language", Metadata: map[string]string{"type": "text"}},
	}, 3)

	if len(results) != 1 {
		t.Fatalf("Rerank() returned %d results", len(results))
	}
	if !scoreClose(results[0].RelevanceScore, 0.9) {
		t.Errorf("RelevanceScore = %v, want 0.9", results[0].RelevanceScore)
	}
	if results[0].KeywordMatches != 1 {
		t.Errorf("KeywordMatches = %d, want 1", results[0].KeywordMatches)
	}
}

func TestRerank_KeywordBonusCap(t *testing.T) {
	engine := NewEngine(log.NewNop())

	// Five overlapping tokens would give 0.5; the bonus caps at 0.3.
	results := engine.Rerank("one two three four five", []SearchResult{
		{Content: "one two three four five", Metadata: map[string]string{}},
	}, 1)

	if !scoreClose(results[0].RelevanceScore, 1.1) {
		t.Errorf("RelevanceScore = %v, want 1.1 (0.8 + capped 0.3)", results[0].RelevanceScore)
	}
	if results[0].KeywordMatches != 5 {
		t.Errorf("KeywordMatches = %d, want 5", results[0].KeywordMatches)
	}
}

func TestRerank_TypeBonuses(t *testing.T) {
	engine := NewEngine(log.NewNop())

	tests := []struct {
		name      string
		query     string
		docType   string
		wantScore float64
	}{
		{"exercise match", "give me practice material", "exercise", 0.8 + 0.2},
		{"video match", "video about css", "video", 0.8 + 0.2},
		{"text match", "explain variables", "text", 0.8 + 0.1},
		{"exercise without trigger", "tell me about loops", "exercise", 0.8},
		{"unknown type", "explain loops", "pdf", 0.8},
		// Substring matching: "exercises" contains "exercise".
		{"plural trigger", "more exercises", "exercise", 0.8 + 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := engine.Rerank(tt.query, []SearchResult{
				{Content: "zzz", Metadata: map[string]string{"type": tt.docType}},
			}, 1)
			if !scoreClose(results[0].RelevanceScore, tt.wantScore) {
				t.Errorf("RelevanceScore = %v, want %v", results[0].RelevanceScore, tt.wantScore)
			}
		})
	}
}

func TestRerank_StableSortAndTruncate(t *testing.T) {
	engine := NewEngine(log.NewNop())

	// Scores for "css tokens": the two css-bearing entries get the
	// overlap bonus, the other two tie at the base score.
	input := []SearchResult{
		{Content: "no overlap at all", Metadata: map[string]string{}},
		{Content: "css tokens here", Metadata: map[string]string{}},
		{Content: "also zero overlap", Metadata: map[string]string{}},
		{Content: "css and more css tokens", Metadata: map[string]string{}},
	}

	results := engine.Rerank("css tokens", input, 3)
	if len(results) != 3 {
		t.Fatalf("Rerank() returned %d results, want 3", len(results))
	}
	// Highest first; the two 0.8 ties keep their input order, and only
	// the earlier one fits into topK.
	if results[len(results)-1].Content != "no overlap at all" {
		t.Errorf("last result = %q, want first of the tied pair", results[len(results)-1].Content)
	}
}

func TestRerank_Idempotent(t *testing.T) {
	engine := NewEngine(log.NewNop())
	input := []SearchResult{
		{Content: "beta css", Metadata: map[string]string{}},
		{Content: "alpha", Metadata: map[string]string{}},
	}

	first := engine.Rerank("css", input, 2)
	second := engine.Rerank("css", input, 2)
	for i := range first {
		if first[i].Content != second[i].Content || !scoreClose(first[i].RelevanceScore, second[i].RelevanceScore) {
			t.Errorf("rerank not deterministic at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestSearchAndRerank(t *testing.T) {
	coll := &mockCollection{result: knowledge.QueryResult{
		Documents: []string{"HTML is a markup language"},
		Metadatas: []map[string]string{{"file": "html.txt", "type": "text"}},
	}}
	engine := NewEngine(log.NewNop())

	results := engine.SearchAndRerank(context.Background(), coll, "What is HTML?", 5, 3)
	if len(results) != 1 {
		t.Fatalf("SearchAndRerank() returned %d results", len(results))
	}
	if !scoreClose(results[0].RelevanceScore, 0.9) {
		t.Errorf("RelevanceScore = %v, want 0.9", results[0].RelevanceScore)
	}
	if coll.lastK != 5 {
		t.Errorf("initial search k = %d, want 5", coll.lastK)
	}
}

func TestSearchAndRerank_EmptySearch(t *testing.T) {
	coll := &mockCollection{result: knowledge.QueryResult{}}
	engine := NewEngine(log.NewNop())

	results := engine.SearchAndRerank(context.Background(), coll, "anything", 5, 3)
	if len(results) != 0 {
		t.Errorf("SearchAndRerank() = %v, want empty", results)
	}
}
