package respond

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sabia-ai/sabia/internal/ai"
	"github.com/sabia-ai/sabia/internal/knowledge"
	"github.com/sabia-ai/sabia/internal/log"
	"github.com/sabia-ai/sabia/internal/question"
	"github.com/sabia-ai/sabia/internal/retrieval"
)

// ============================================================================
// Mock Implementations
// ============================================================================

type mockCompleter struct {
	response  string
	err       error
	callCount int
	requests  []ai.Request
}

func (m *mockCompleter) Complete(ctx context.Context, req ai.Request) (string, error) {
	m.callCount++
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

type mockAnalyzer struct {
	scope          question.ScopeVerdict
	classification question.Classification
	analysis       question.Analysis
	summary        question.ContentSummary
	panicOnScope   bool

	scopeCalls    int
	classifyCalls int
	maturityCalls int
	contentCalls  int
}

func (m *mockAnalyzer) CheckScope(ctx context.Context, coll question.Collection, q string) question.ScopeVerdict {
	m.scopeCalls++
	if m.panicOnScope {
		panic("store exploded")
	}
	return m.scope
}

func (m *mockAnalyzer) ClassifyType(ctx context.Context, q string) question.Classification {
	m.classifyCalls++
	return m.classification
}

func (m *mockAnalyzer) AnalyzeMaturity(ctx context.Context, q string) question.Analysis {
	m.maturityCalls++
	return m.analysis
}

func (m *mockAnalyzer) AnalyzeIndexedContent(ctx context.Context, coll question.Collection) question.ContentSummary {
	m.contentCalls++
	return m.summary
}

type mockSearcher struct {
	resultsByQuery map[string][]retrieval.SearchResult
	queries        []string
	lastTopK       int
}

func (m *mockSearcher) SearchAndRerank(ctx context.Context, coll retrieval.Collection, query string, n, topK int) []retrieval.SearchResult {
	m.queries = append(m.queries, query)
	m.lastTopK = topK
	return m.resultsByQuery[query]
}

// mockCollection implements question.Collection; the generator only
// hands it through to the analyzer and searcher.
type mockCollection struct {
	queryCalls int
	getCalls   int
}

func (m *mockCollection) Query(ctx context.Context, text string, k int) (knowledge.QueryResult, error) {
	m.queryCalls++
	return knowledge.QueryResult{}, nil
}

func (m *mockCollection) Get(ctx context.Context, limit int) (knowledge.Sample, error) {
	m.getCalls++
	return knowledge.Sample{}, nil
}

func inScopeAnalyzer() *mockAnalyzer {
	return &mockAnalyzer{
		scope:          question.ScopeVerdict{InScope: true, Confidence: 0.8},
		classification: question.Classification{Type: "technical", Verbosity: "moderate", Style: "educational"},
		analysis:       question.Analysis{KnowledgeLevel: "beginner", Topics: []string{"html", "css"}, Confidence: 0.9},
	}
}

// ============================================================================
// Tests
// ============================================================================

func TestGenerate_NoLLM(t *testing.T) {
	analyzer := inScopeAnalyzer()
	searcher := &mockSearcher{}
	coll := &mockCollection{}
	g := NewGenerator(analyzer, searcher, nil, log.NewNop(), Options{})

	answer := g.Generate(context.Background(), coll, "anything", "text")
	if answer != ApologyNotConfigured {
		t.Errorf("Generate() = %q, want not-configured apology", answer)
	}
	// The short-circuit happens before any other step runs.
	if analyzer.scopeCalls+analyzer.classifyCalls+analyzer.maturityCalls != 0 {
		t.Error("analyzer consulted despite missing completer")
	}
	if len(searcher.queries) != 0 || coll.queryCalls+coll.getCalls != 0 {
		t.Error("store touched despite missing completer")
	}
}

func TestGenerate_ApologiesAreDistinct(t *testing.T) {
	if ApologyNotConfigured == ApologyGenerationFailed {
		t.Fatal("the two apology strings must be distinguishable")
	}
	if !strings.Contains(ApologyNotConfigured, "não está configurado") {
		t.Errorf("configuration apology lost its marker: %q", ApologyNotConfigured)
	}
	if !strings.Contains(ApologyGenerationFailed, "problema ao gerar") {
		t.Errorf("generation apology lost its marker: %q", ApologyGenerationFailed)
	}
}

func TestGenerate_OutOfScope(t *testing.T) {
	analyzer := inScopeAnalyzer()
	analyzer.scope = question.ScopeVerdict{InScope: false, Confidence: 0.9, Reasoning: "no related content"}
	analyzer.summary = question.ContentSummary{
		Summary:          "Materiais de desenvolvimento web",
		Technologies:     []string{"HTML", "CSS"},
		Topics:           []string{"marcação"},
		ContentTypes:     []string{"texto"},
		ExampleQuestions: []string{"q1", "q2", "q3", "q4", "q5"},
		FileCount:        12,
	}
	completer := &mockCompleter{response: "should not be used"}
	g := NewGenerator(analyzer, &mockSearcher{}, completer, log.NewNop(), Options{})

	answer := g.Generate(context.Background(), &mockCollection{}, "como fazer um bolo?", "text")

	for _, want := range []string{
		"fora do escopo",
		`"como fazer um bolo?"`,
		"Materiais de desenvolvimento web",
		"HTML, CSS",
		"**Documentos indexados:** 12",
		`"q4"`,
	} {
		if !strings.Contains(answer, want) {
			t.Errorf("out-of-scope answer missing %q:\n%s", want, answer)
		}
	}
	// Example questions cap at four.
	if strings.Contains(answer, `"q5"`) {
		t.Error("more than 4 example questions rendered")
	}
	// The completion model is not used on this branch.
	if completer.callCount != 0 {
		t.Errorf("completer called %d times on out-of-scope branch", completer.callCount)
	}
	if analyzer.contentCalls != 1 {
		t.Errorf("contentCalls = %d, want 1", analyzer.contentCalls)
	}
}

func TestGenerate_OutOfScope_NoExamples(t *testing.T) {
	analyzer := inScopeAnalyzer()
	analyzer.scope = question.ScopeVerdict{InScope: false}
	analyzer.summary = question.ContentSummary{Summary: "vazio"}
	g := NewGenerator(analyzer, &mockSearcher{}, &mockCompleter{}, log.NewNop(), Options{})

	answer := g.Generate(context.Background(), &mockCollection{}, "q", "text")
	if !strings.Contains(answer, "Explique os conceitos disponíveis na base de conhecimento") {
		t.Errorf("generic example fallback missing:\n%s", answer)
	}
}

func TestGenerate_AnalysisUnavailable(t *testing.T) {
	analyzer := inScopeAnalyzer()
	analyzer.analysis = question.Analysis{} // no result at all

	g := NewGenerator(analyzer, &mockSearcher{}, &mockCompleter{response: "x"}, log.NewNop(), Options{})
	answer := g.Generate(context.Background(), &mockCollection{}, "q", "text")
	if answer != ApologyAnalysisUnavailable {
		t.Errorf("Generate() = %q, want analysis-unavailable apology", answer)
	}
}

func TestGenerate_HappyPath(t *testing.T) {
	analyzer := inScopeAnalyzer()
	searcher := &mockSearcher{resultsByQuery: map[string][]retrieval.SearchResult{
		"o que é html?": {
			{Content: "HTML is a markup language", Metadata: map[string]string{"file": "html.txt"}},
		},
		"css": {
			{Content: "CSS styles pages", Metadata: map[string]string{"file": "css.txt"}},
		},
	}}
	completer := &mockCompleter{response: "HTML é a linguagem de marcação da web."}
	g := NewGenerator(analyzer, searcher, completer, log.NewNop(), Options{})

	answer := g.Generate(context.Background(), &mockCollection{}, "o que é html?", "video")
	if answer != "HTML é a linguagem de marcação da web." {
		t.Errorf("Generate() = %q, want completion text verbatim", answer)
	}

	// Query list: question first, then topics, capped at three.
	wantQueries := []string{"o que é html?", "html", "css"}
	if len(searcher.queries) != len(wantQueries) {
		t.Fatalf("queries = %v", searcher.queries)
	}
	for i, q := range wantQueries {
		if searcher.queries[i] != q {
			t.Errorf("queries[%d] = %q, want %q", i, searcher.queries[i], q)
		}
	}

	prompt := completer.requests[0].Prompt
	for _, want := range []string{
		`User Question: "o que é html?"`,
		"- Knowledge Level: beginner",
		"- Topics: html, css",
		"User Preference: video",
		"Source: html.txt",
		"Content: HTML is a markup language",
		"Source: css.txt",
		"1. Explain as if creating a video tutorial, with step-by-step guidance.",
		"2. Forneça uma explicação equilibrada com exemplos práticos.",
		"3. Use abordagem educacional com conceitos e exemplos.",
		"4. Adapt complexity to beginner level",
		"8. If context is insufficient, clearly state limitations",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if completer.requests[0].MaxTokens != 800 {
		t.Errorf("MaxTokens = %d, want 800", completer.requests[0].MaxTokens)
	}

	// Both independent analyses ran exactly once.
	if analyzer.classifyCalls != 1 || analyzer.maturityCalls != 1 {
		t.Errorf("classify/maturity calls = %d/%d", analyzer.classifyCalls, analyzer.maturityCalls)
	}
}

func TestGenerate_QueryListCaps(t *testing.T) {
	analyzer := inScopeAnalyzer()
	analyzer.analysis.Topics = []string{"t1", "t2", "t3", "t4"}
	searcher := &mockSearcher{}
	g := NewGenerator(analyzer, searcher, &mockCompleter{response: "ok"}, log.NewNop(), Options{})

	g.Generate(context.Background(), &mockCollection{}, "pergunta", "text")
	if len(searcher.queries) != 3 {
		t.Fatalf("issued %d queries, want 3", len(searcher.queries))
	}
	if searcher.queries[0] != "pergunta" || searcher.queries[1] != "t1" || searcher.queries[2] != "t2" {
		t.Errorf("queries = %v", searcher.queries)
	}
}

func TestGenerate_Dedup(t *testing.T) {
	shared := strings.Repeat("x", 100)
	analyzer := inScopeAnalyzer()
	analyzer.analysis.Topics = []string{"css"}
	searcher := &mockSearcher{resultsByQuery: map[string][]retrieval.SearchResult{
		"q": {
			{Content: shared + " first variant", Metadata: map[string]string{"file": "a.txt"}},
			{Content: "distinct document", Metadata: map[string]string{"file": "b.txt"}},
		},
		"css": {
			{Content: shared + " second variant", Metadata: map[string]string{"file": "c.txt"}},
		},
	}}
	completer := &mockCompleter{response: "ok"}
	g := NewGenerator(analyzer, searcher, completer, log.NewNop(), Options{})

	g.Generate(context.Background(), &mockCollection{}, "q", "text")

	prompt := completer.requests[0].Prompt
	// The two results share a 100-byte prefix; the first occurrence
	// (a.txt) survives, the later duplicate (c.txt) does not.
	if !strings.Contains(prompt, "Source: a.txt") || !strings.Contains(prompt, "Source: b.txt") {
		t.Errorf("expected sources missing:\n%s", prompt)
	}
	if strings.Contains(prompt, "Source: c.txt") {
		t.Errorf("duplicate survived dedup:\n%s", prompt)
	}
}

func TestGenerate_ContextCapsAtThree(t *testing.T) {
	analyzer := inScopeAnalyzer()
	analyzer.analysis.Topics = nil
	searcher := &mockSearcher{resultsByQuery: map[string][]retrieval.SearchResult{
		"q": {
			{Content: "doc one", Metadata: map[string]string{"file": "1.txt"}},
			{Content: "doc two", Metadata: map[string]string{"file": "2.txt"}},
			{Content: "doc three", Metadata: map[string]string{"file": "3.txt"}},
			{Content: "doc four", Metadata: map[string]string{"file": "4.txt"}},
		},
	}}
	completer := &mockCompleter{response: "ok"}
	g := NewGenerator(analyzer, searcher, completer, log.NewNop(), Options{})

	g.Generate(context.Background(), &mockCollection{}, "q", "text")
	if strings.Contains(completer.requests[0].Prompt, "Source: 4.txt") {
		t.Error("more than three context documents rendered")
	}
}

func TestGenerate_Options(t *testing.T) {
	analyzer := inScopeAnalyzer()
	analyzer.analysis.Topics = nil
	searcher := &mockSearcher{resultsByQuery: map[string][]retrieval.SearchResult{
		"q": {
			{Content: "doc one", Metadata: map[string]string{"file": "1.txt"}},
			{Content: "doc two", Metadata: map[string]string{"file": "2.txt"}},
			{Content: "doc three", Metadata: map[string]string{"file": "3.txt"}},
		},
	}}
	completer := &mockCompleter{response: "ok"}
	g := NewGenerator(analyzer, searcher, completer, log.NewNop(), Options{
		Temperature: 0.7,
		MaxTokens:   512,
		TopResults:  2,
	})

	g.Generate(context.Background(), &mockCollection{}, "q", "text")

	req := completer.requests[0]
	if req.MaxTokens != 512 || req.Temperature != 0.7 {
		t.Errorf("completion request = %d tokens / %v temperature, want 512 / 0.7", req.MaxTokens, req.Temperature)
	}
	if searcher.lastTopK != 2 {
		t.Errorf("rerank topK = %d, want 2", searcher.lastTopK)
	}
	if strings.Contains(req.Prompt, "Source: 3.txt") {
		t.Error("context must cap at the configured document count")
	}
}

func TestGenerate_MissingFileMetadata(t *testing.T) {
	analyzer := inScopeAnalyzer()
	analyzer.analysis.Topics = nil
	searcher := &mockSearcher{resultsByQuery: map[string][]retrieval.SearchResult{
		"q": {{Content: "orphan content", Metadata: map[string]string{}}},
	}}
	completer := &mockCompleter{response: "ok"}
	g := NewGenerator(analyzer, searcher, completer, log.NewNop(), Options{})

	g.Generate(context.Background(), &mockCollection{}, "q", "text")
	if !strings.Contains(completer.requests[0].Prompt, "Source: Unknown") {
		t.Error("missing file metadata should render as Unknown")
	}
}

func TestGenerate_CompletionFailure(t *testing.T) {
	g := NewGenerator(inScopeAnalyzer(), &mockSearcher{}, &mockCompleter{err: errors.New("rate limited")}, log.NewNop(), Options{})

	answer := g.Generate(context.Background(), &mockCollection{}, "q", "text")
	if answer != ApologyGenerationFailed {
		t.Errorf("Generate() = %q, want generation apology", answer)
	}
}

func TestGenerate_PanicRecovered(t *testing.T) {
	analyzer := inScopeAnalyzer()
	analyzer.panicOnScope = true
	g := NewGenerator(analyzer, &mockSearcher{}, &mockCompleter{response: "ok"}, log.NewNop(), Options{})

	answer := g.Generate(context.Background(), &mockCollection{}, "q", "text")
	if answer != ApologyGenerationFailed {
		t.Errorf("Generate() = %q, want generation apology after panic", answer)
	}
}

func TestGenerate_UnrecognizedClassificationValues(t *testing.T) {
	analyzer := inScopeAnalyzer()
	analyzer.classification = question.Classification{Type: "technical", Verbosity: "rambling", Style: "noir"}
	completer := &mockCompleter{response: "ok"}
	g := NewGenerator(analyzer, &mockSearcher{}, completer, log.NewNop(), Options{})

	g.Generate(context.Background(), &mockCollection{}, "q", "exercises")
	prompt := completer.requests[0].Prompt
	if !strings.Contains(prompt, "2. Forneça uma explicação equilibrada.") {
		t.Errorf("unrecognized verbosity should use fallback wording:\n%s", prompt)
	}
	if !strings.Contains(prompt, "3. Use abordagem educacional com conceitos e exemplos.") {
		t.Errorf("unrecognized style should use fallback wording:\n%s", prompt)
	}
	if !strings.Contains(prompt, "1. Include practical exercises and hands-on examples.") {
		t.Errorf("exercises format instruction missing:\n%s", prompt)
	}
}
