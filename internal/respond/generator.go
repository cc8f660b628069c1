// Package respond turns a raw user question into a personalized answer.
//
// The generator sequences scope validation, question classification,
// maturity analysis, multi-query retrieval with re-ranking and
// deduplication, and prompt assembly into a single LLM completion. Out
// of scope questions get a corpus-aware explanation instead; every
// failure path degrades to a natural-language apology, never a raw
// error to the end user.
package respond

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/sabia-ai/sabia/internal/ai"
	"github.com/sabia-ai/sabia/internal/question"
	"github.com/sabia-ai/sabia/internal/retrieval"
)

// Fixed user-visible strings. The two apologies are deliberately
// distinct: one means "no model configured", the other "the model broke
// mid-flight", and operators triage them differently.
const (
	ApologyNotConfigured = "🤖 Desculpe, o serviço de IA não está configurado. Verifique as chaves de API."

	ApologyAnalysisUnavailable = "🤖 Desculpe, tive um problema ao analisar sua pergunta. A IA parece estar indisponível. Por favor, tente novamente em breve."

	ApologyGenerationFailed = "🤖 Desculpe, tive um problema ao gerar sua resposta. A IA parece estar indisponível. Por favor, tente novamente em breve."
)

// Retrieval parameters for the compose step.
const (
	maxQueries     = 3   // question + topics, capped
	searchN        = 5   // initial nearest-neighbor hits per query
	dedupPrefix    = 100 // bytes of content used as the dedup identity
	contextPreview = 400 // bytes of content quoted per document
)

// Completion defaults, used when Options leaves a field zero.
const (
	defaultMaxTokens   = 800
	defaultTemperature = 0.1
	defaultTopResults  = 3
)

// Options tunes retrieval breadth and the final completion. Zero
// values select the defaults above.
type Options struct {
	// Temperature is the sampling temperature of the answer completion.
	Temperature float32
	// MaxTokens is the completion budget of the answer.
	MaxTokens int
	// TopResults is how many documents survive re-ranking per query
	// and how many unique documents the prompt quotes.
	TopResults int
}

// Analyzer is the question-understanding surface the generator drives.
// *question.Analyzer satisfies it; tests substitute mocks.
type Analyzer interface {
	AnalyzeMaturity(ctx context.Context, q string) question.Analysis
	ClassifyType(ctx context.Context, q string) question.Classification
	CheckScope(ctx context.Context, coll question.Collection, q string) question.ScopeVerdict
	AnalyzeIndexedContent(ctx context.Context, coll question.Collection) question.ContentSummary
}

// Searcher is the retrieval surface. *retrieval.Engine satisfies it.
type Searcher interface {
	SearchAndRerank(ctx context.Context, coll retrieval.Collection, query string, n, topK int) []retrieval.SearchResult
}

// Generator produces adaptive answers.
type Generator struct {
	analyzer    Analyzer
	searcher    Searcher
	completer   ai.Completer // nil selects the not-configured apology
	logger      *slog.Logger
	tracer      trace.Tracer
	temperature float32
	maxTokens   int
	topResults  int
}

// NewGenerator wires a Generator. completer may be nil; the generator
// then answers every question with the configuration apology without
// touching the vector store.
func NewGenerator(analyzer Analyzer, searcher Searcher, completer ai.Completer, logger *slog.Logger, opts Options) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Temperature <= 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.TopResults <= 0 {
		opts.TopResults = defaultTopResults
	}
	return &Generator{
		analyzer:    analyzer,
		searcher:    searcher,
		completer:   completer,
		logger:      logger,
		tracer:      otel.Tracer("sabia/respond"),
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		topResults:  opts.TopResults,
	}
}

// Generate answers one question, adapted to the inferred knowledge
// level and the user's preferred format (text, video, exercises or
// mixed). It always returns displayable text; internal failures come
// back as one of the fixed apology strings.
func (g *Generator) Generate(ctx context.Context, coll question.Collection, userQuestion, preferredFormat string) (answer string) {
	if g.completer == nil {
		return ApologyNotConfigured
	}

	ctx, span := g.tracer.Start(ctx, "respond.Generate",
		trace.WithAttributes(attribute.String("respond.format", preferredFormat)))
	defer span.End()

	// The caller always gets an apology, never a panic from a broken
	// analyzer or store implementation.
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("response generation panicked", "panic", r)
			answer = ApologyGenerationFailed
		}
	}()

	scope := g.analyzer.CheckScope(ctx, coll, userQuestion)
	if !scope.InScope {
		g.logger.Info("question out of scope", "reasoning", scope.Reasoning)
		span.SetAttributes(attribute.Bool("respond.out_of_scope", true))
		return g.outOfScope(ctx, coll, userQuestion)
	}

	// Classification and maturity analysis are independent; run them
	// concurrently and consume the results in a fixed order.
	var (
		classification question.Classification
		analysis       question.Analysis
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		classification = g.analyzer.ClassifyType(groupCtx, userQuestion)
		return nil
	})
	group.Go(func() error {
		analysis = g.analyzer.AnalyzeMaturity(groupCtx, userQuestion)
		return nil
	})
	_ = group.Wait()

	// A degraded default still carries a level; a missing one means the
	// analyzer produced nothing at all, and without topics or level
	// there is nothing to drive retrieval or phrasing.
	if analysis.KnowledgeLevel == "" {
		return ApologyAnalysisUnavailable
	}

	topResults := g.retrieve(ctx, coll, userQuestion, analysis.Topics)
	contextBlock := buildContext(topResults)

	prompt := buildPrompt(userQuestion, preferredFormat, classification, analysis, contextBlock)

	g.logger.Info("generating adaptive response", "level", analysis.KnowledgeLevel, "context_docs", len(topResults))
	response, err := g.completer.Complete(ctx, ai.Request{
		System:      "You are an expert programming educator who adapts content to user knowledge levels and preferences.",
		Prompt:      prompt,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		g.logger.Error("failed to generate response", "error", err)
		return ApologyGenerationFailed
	}
	return response
}

// retrieve runs the multi-query search: the question itself plus the
// analyzed topics, capped at maxQueries, in that order. Order matters:
// deduplication keeps the first occurrence, so earlier queries win.
func (g *Generator) retrieve(ctx context.Context, coll question.Collection, userQuestion string, topics []string) []retrieval.SearchResult {
	queries := append([]string{userQuestion}, topics...)
	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}

	var all []retrieval.SearchResult
	for _, query := range queries {
		all = append(all, g.searcher.SearchAndRerank(ctx, coll, query, searchN, g.topResults)...)
	}

	seen := make(map[string]bool)
	var unique []retrieval.SearchResult
	for _, result := range all {
		key := firstN(result.Content, dedupPrefix)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, result)
		if len(unique) == g.topResults {
			break
		}
	}
	return unique
}

// buildContext renders the retained results as the prompt's reference
// material block.
func buildContext(results []retrieval.SearchResult) string {
	blocks := make([]string, 0, len(results))
	for _, result := range results {
		file := result.Metadata["file"]
		if file == "" {
			file = "Unknown"
		}
		blocks = append(blocks, fmt.Sprintf("Source: %s\nContent: %s", file, firstN(result.Content, contextPreview)))
	}
	return strings.Join(blocks, "\n\n")
}

var formatInstructions = map[string]string{
	"text":      "Provide a clear text explanation with examples.",
	"video":     "Explain as if creating a video tutorial, with step-by-step guidance.",
	"exercises": "Include practical exercises and hands-on examples.",
	"mixed":     "Use a combination of explanation, examples, and practical exercises.",
}

var verbosityInstructions = map[string]string{
	"concise":  "Seja direto e objetivo. Evite explicações longas.",
	"moderate": "Forneça uma explicação equilibrada com exemplos práticos.",
	"detailed": "Explique detalhadamente com múltiplos exemplos e exercícios práticos.",
}

var styleInstructions = map[string]string{
	"list":           "Responda em formato de lista clara e organizada.",
	"conversational": "Use um tom conversacional e amigável.",
	"educational":    "Use abordagem educacional com conceitos e exemplos.",
	"tutorial":       "Forneça um tutorial passo-a-passo detalhado.",
}

// buildPrompt assembles the single completion prompt: the verbatim
// question, both analyses, the user preference, the context block, and
// eight fixed instruction lines parameterized by format, verbosity and
// style (with fallback wordings for unrecognized values).
func buildPrompt(userQuestion, preferredFormat string, c question.Classification, a question.Analysis, contextBlock string) string {
	formatInstruction, ok := formatInstructions[preferredFormat]
	if !ok {
		formatInstruction = "Provide a comprehensive explanation."
	}
	verbosityInstruction, ok := verbosityInstructions[c.Verbosity]
	if !ok {
		verbosityInstruction = "Forneça uma explicação equilibrada."
	}
	styleInstruction, ok := styleInstructions[c.Style]
	if !ok {
		styleInstruction = "Use abordagem educacional com conceitos e exemplos."
	}

	topics := strings.Join(a.Topics, ", ")

	return fmt.Sprintf(`User Question: %q

Question Classification:
- Type: %s
- Verbosity: %s
- Style: %s

Question Analysis:
- Knowledge Level: %s
- Topics: %s
- Confidence: %v

User Preference: %s

Available Context from Educational Materials:
%s

Instructions:
1. %s
2. %s
3. %s
4. Adapt complexity to %s level
5. Focus on the specific topics: %s
6. Use the provided context as reference material
7. Be practical and include examples when appropriate for the question type
8. If context is insufficient, clearly state limitations`,
		userQuestion,
		c.Type, c.Verbosity, c.Style,
		a.KnowledgeLevel, topics, a.Confidence,
		preferredFormat,
		contextBlock,
		formatInstruction, verbosityInstruction, styleInstruction,
		a.KnowledgeLevel, topics)
}

// outOfScope renders the corpus-aware limitation message.
func (g *Generator) outOfScope(ctx context.Context, coll question.Collection, userQuestion string) string {
	summary := g.analyzer.AnalyzeIndexedContent(ctx, coll)

	var details strings.Builder
	if len(summary.Technologies) > 0 {
		fmt.Fprintf(&details, "- 💻 **Tecnologias:** %s\n", strings.Join(summary.Technologies, ", "))
	}
	if len(summary.Topics) > 0 {
		fmt.Fprintf(&details, "- 📚 **Tópicos:** %s\n", strings.Join(summary.Topics, ", "))
	}
	if len(summary.ContentTypes) > 0 {
		fmt.Fprintf(&details, "- 📖 **Formatos:** %s\n", strings.Join(summary.ContentTypes, ", "))
	}
	fmt.Fprintf(&details, "- 📁 **Documentos indexados:** %d\n", summary.FileCount)

	examples := summary.ExampleQuestions
	if len(examples) > 4 {
		examples = examples[:4]
	}
	var examplesText string
	if len(examples) > 0 {
		quoted := make([]string, len(examples))
		for i, q := range examples {
			quoted[i] = fmt.Sprintf("- %q", q)
		}
		examplesText = strings.Join(quoted, "\n")
	} else {
		examplesText = `- "Explique os conceitos disponíveis na base de conhecimento"`
	}

	return fmt.Sprintf(`🤖 **Desculpe, sua pergunta está fora do escopo da nossa base de conhecimento atual.**

**Sua pergunta:** %q

**📋 Nossa base de conhecimento atual:**
%s

**🔍 Detalhes do conteúdo disponível:**
%s
**💡 Sugestões de perguntas que posso responder:**
%s

**✨ Dica:** Faça perguntas relacionadas ao conteúdo que temos indexado e eu poderei gerar respostas personalizadas com texto, áudio e vídeo!

Estou aqui para ajudar! 😊`,
		userQuestion, summary.Summary, details.String(), examplesText)
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
