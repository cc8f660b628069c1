package question

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sabia-ai/sabia/internal/ai"
	"github.com/sabia-ai/sabia/internal/knowledge"
	"github.com/sabia-ai/sabia/internal/retrieval"
)

// Collection is the vector-store surface the analyzer reads:
// similarity queries for scope checks and raw samples for corpus
// characterization. *knowledge.Collection satisfies it.
type Collection interface {
	retrieval.Collection
	Get(ctx context.Context, limit int) (knowledge.Sample, error)
}

// defaultAnalysisTokens is the completion budget for the maturity
// analysis when Options leaves MaxTokens zero. The classification,
// scope and content calls keep their fixed budgets.
const defaultAnalysisTokens = 300

// Options tunes the analyzer's model calls.
type Options struct {
	// MaxTokens is the completion budget for the maturity analysis.
	MaxTokens int
}

// Analyzer runs the question analyses. A nil completer selects the
// LLM-absent path of every method; absence of a model degrades results,
// it never blocks them.
type Analyzer struct {
	completer      ai.Completer
	engine         *retrieval.Engine
	logger         *slog.Logger
	analysisTokens int
}

// NewAnalyzer wires an Analyzer. completer may be nil.
func NewAnalyzer(completer ai.Completer, engine *retrieval.Engine, logger *slog.Logger, opts Options) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultAnalysisTokens
	}
	return &Analyzer{
		completer:      completer,
		engine:         engine,
		logger:         logger,
		analysisTokens: opts.MaxTokens,
	}
}

const maturityPromptTemplate = `Analyze this programming question and determine:
1. Knowledge level: beginner, intermediate, or advanced
2. Main topics covered (list)
3. Confidence in assessment (0-1)
4. Brief reasoning

Question: %q

Respond in JSON format:
{
    "knowledge_level": "beginner/intermediate/advanced",
    "topics": ["topic1", "topic2"],
    "confidence": 0.0-1.0,
    "reasoning": "brief explanation"
}`

// AnalyzeMaturity assesses the question's knowledge level and topics.
// LLM-absent default: intermediate/[general]/0.5. LLM-failure default:
// intermediate/[general]/0.3 with the failure in the reasoning.
func (a *Analyzer) AnalyzeMaturity(ctx context.Context, question string) Analysis {
	if a.completer == nil {
		a.logger.Warn("no completion model available, using basic classification")
		return Analysis{
			KnowledgeLevel: "intermediate",
			Topics:         []string{"general"},
			Confidence:     0.5,
			Reasoning:      "Default classification due to unavailable AI analysis",
			Defaulted:      true,
		}
	}

	raw, err := a.completer.Complete(ctx, ai.Request{
		System:      "You are an expert in assessing programming knowledge levels. Always respond with valid JSON.",
		Prompt:      fmt.Sprintf(maturityPromptTemplate, question),
		MaxTokens:   a.analysisTokens,
		Temperature: 0.2,
	})
	if err == nil {
		var analysis Analysis
		if err = extractJSON(raw, &analysis); err == nil && analysis.KnowledgeLevel == "" {
			err = errors.New("response missing knowledge_level")
		}
		if err == nil {
			a.logger.Info("question analysis completed", "level", analysis.KnowledgeLevel)
			return analysis
		}
	}

	a.logger.Error("failed to analyze question", "error", err)
	return Analysis{
		KnowledgeLevel: "intermediate",
		Topics:         []string{"general"},
		Confidence:     0.3,
		Reasoning:      fmt.Sprintf("Analysis failed: %v", err),
		Defaulted:      true,
	}
}

const classifyPromptTemplate = `Classifique o tipo da pergunta do usuário para determinar o estilo de resposta adequado.

PERGUNTA: %q

Tipos de pergunta:
- "scope": Pergunta sobre o que pode ser discutido/ensinado
- "overview": Pergunta geral sobre um tópico
- "technical": Pergunta específica/técnica
- "guidance": Pergunta sobre como começar/estudar

Responda em JSON:
{
    "type": "scope/overview/technical/guidance",
    "verbosity": "concise/moderate/detailed",
    "style": "list/conversational/educational/tutorial",
    "reasoning": "explicação breve da classificação"
}`

// ClassifyType determines response verbosity and style.
//
// The LLM-absent default uses "detailed" verbosity while the
// LLM-failure default uses "moderate". The asymmetry is intentional;
// tests pin both values.
func (a *Analyzer) ClassifyType(ctx context.Context, question string) Classification {
	if a.completer == nil {
		return Classification{
			Type:      "technical",
			Verbosity: "detailed",
			Style:     "educational",
			Defaulted: true,
		}
	}

	raw, err := a.completer.Complete(ctx, ai.Request{
		System:      "Você é um especialista em classificação de perguntas educacionais. Responda sempre com JSON válido.",
		Prompt:      fmt.Sprintf(classifyPromptTemplate, question),
		MaxTokens:   200,
		Temperature: 0.1,
	})
	if err == nil {
		var classification Classification
		if err = extractJSON(raw, &classification); err == nil {
			a.logger.Info("question classified", "type", classification.Type, "verbosity", classification.Verbosity)
			return classification
		}
	}

	a.logger.Error("failed to classify question", "error", err)
	return Classification{
		Type:      "technical",
		Verbosity: "moderate",
		Style:     "educational",
		Reasoning: "Classification failed, using default",
		Defaulted: true,
	}
}

const scopePromptTemplate = `Analise se a seguinte pergunta está dentro do escopo da base de conhecimento.

PERGUNTA: %q

ESCOPO DISPONÍVEL:
- Tópicos: %s
- Conteúdo: Textos, PDFs, vídeos sobre programação

Responda em JSON:
{
    "in_scope": true/false,
    "confidence": 0.0-1.0,
    "reasoning": "explicação breve"
}`

// CheckScope decides whether the question is answerable from the
// indexed corpus. An empty similarity search is decisive on its own:
// out of scope with confidence 0.9, no model call. Otherwise the top
// results' coarse topic tags plus the question go to the model for the
// verdict. Both the LLM-absent and LLM-failure paths fail open
// (in scope) so a missing or broken model never blocks answering.
func (a *Analyzer) CheckScope(ctx context.Context, coll Collection, question string) ScopeVerdict {
	searchResults := a.engine.Search(ctx, coll, question, 5)
	if len(searchResults) == 0 {
		return ScopeVerdict{
			InScope:    false,
			Confidence: 0.9,
			Reasoning:  "No related content found in indexed database",
			Defaulted:  true,
		}
	}

	if a.completer == nil {
		return ScopeVerdict{
			InScope:    true,
			Confidence: 0.5,
			Reasoning:  "No LLM available for scope validation",
			Defaulted:  true,
		}
	}

	topics := indexedTopics(searchResults)
	topicList := "Fundamentos de programação"
	if len(topics) > 0 {
		topicList = strings.Join(topics, ", ")
	}

	raw, err := a.completer.Complete(ctx, ai.Request{
		System:      "Você é um especialista em validação de escopo. Responda sempre com JSON válido.",
		Prompt:      fmt.Sprintf(scopePromptTemplate, question, topicList),
		MaxTokens:   200,
		Temperature: 0.1,
	})
	if err == nil {
		// in_scope is a pointer so an omitted field is distinguishable
		// from an explicit false: a verdict that does not mention scope
		// keeps the question in scope.
		var reply struct {
			InScope    *bool   `json:"in_scope"`
			Confidence float64 `json:"confidence"`
			Reasoning  string  `json:"reasoning"`
		}
		if err = extractJSON(raw, &reply); err == nil {
			verdict := ScopeVerdict{
				InScope:    reply.InScope == nil || *reply.InScope,
				Confidence: reply.Confidence,
				Reasoning:  reply.Reasoning,
			}
			a.logger.Info("scope validation", "in_scope", verdict.InScope, "confidence", verdict.Confidence)
			return verdict
		}
	}

	a.logger.Error("scope validation failed", "error", err)
	return ScopeVerdict{
		InScope:    true,
		Confidence: 0.3,
		Reasoning:  "Scope validation failed, defaulting to in-scope",
		Defaulted:  true,
	}
}

// indexedTopics derives coarse topic tags from fixed keyword markers.
// Previews and file names are scanned case-insensitively; the js marker
// only applies to file names and the programming markers only to
// previews, matching how the corpus is actually labeled.
func indexedTopics(results []retrieval.SearchResult) []string {
	seen := make(map[string]bool)
	var topics []string
	add := func(topic string) {
		if !seen[topic] {
			seen[topic] = true
			topics = append(topics, topic)
		}
	}

	for _, result := range results {
		preview := strings.ToLower(firstN(result.Content, 200))
		fileName := strings.ToLower(result.Metadata["file"])

		if strings.Contains(preview, "html") || strings.Contains(fileName, "html") {
			add("HTML")
		}
		if strings.Contains(preview, "css") || strings.Contains(fileName, "css") {
			add("CSS")
		}
		if strings.Contains(preview, "javascript") || strings.Contains(fileName, "js") {
			add("JavaScript")
		}
		if strings.Contains(preview, "php") || strings.Contains(fileName, "php") {
			add("PHP")
		}
		if strings.Contains(preview, "programação") || strings.Contains(preview, "programming") {
			add("Programming Basics")
		}
	}
	return topics
}

const contentPromptTemplate = `Analise o conteúdo educacional indexado abaixo.

CONTEÚDO INDEXADO (%d documentos total):
%s

Responda em JSON:
{
    "summary": "Resumo do conteúdo",
    "technologies": ["lista de tecnologias identificadas"],
    "topics": ["lista de tópicos principais"],
    "content_types": ["tipos de materiais"],
    "example_questions": ["3 exemplos de perguntas"],
    "file_count": %d
}`

// AnalyzeIndexedContent characterizes the corpus by sampling up to 30
// stored documents (the first 10 go into the prompt) and asking the
// model to summarize them. Only used to build the out-of-scope
// explanation; every failure path returns a generic Portuguese
// placeholder instead of an error.
func (a *Analyzer) AnalyzeIndexedContent(ctx context.Context, coll Collection) ContentSummary {
	if a.completer == nil {
		a.logger.Warn("no completion model available for content analysis")
		return ContentSummary{
			Summary:          "Conteúdo educacional disponível",
			Technologies:     []string{"Programação"},
			Topics:           []string{"Conceitos básicos"},
			ContentTypes:     []string{"Materiais educacionais"},
			ExampleQuestions: []string{"O que você pode me ensinar?"},
			Defaulted:        true,
		}
	}

	sample, err := coll.Get(ctx, 30)
	if err == nil && len(sample.Documents) == 0 {
		return ContentSummary{
			Summary:          "Base de conhecimento vazia",
			Technologies:     []string{},
			Topics:           []string{},
			ContentTypes:     []string{},
			ExampleQuestions: []string{"Nenhum conteúdo disponível no momento"},
			Defaulted:        true,
		}
	}

	fileCount := len(sample.Documents)
	if err == nil {
		var samples []string
		for i, doc := range sample.Documents {
			if i >= 10 {
				break
			}
			fileInfo := fmt.Sprintf("documento_%d", i)
			contentType := "unknown"
			if i < len(sample.Metadatas) && sample.Metadatas[i] != nil {
				if f := sample.Metadatas[i]["file"]; f != "" {
					fileInfo = f
				}
				if t := sample.Metadatas[i]["type"]; t != "" {
					contentType = t
				}
			}
			samples = append(samples, fmt.Sprintf("Arquivo: %s (Tipo: %s)\nConteúdo: %s...", fileInfo, contentType, firstN(doc, 200)))
		}

		var raw string
		raw, err = a.completer.Complete(ctx, ai.Request{
			System:      "Você é um especialista em análise de conteúdo educacional. Responda sempre com JSON válido.",
			Prompt:      fmt.Sprintf(contentPromptTemplate, fileCount, strings.Join(samples, "\n"), fileCount),
			MaxTokens:   600,
			Temperature: 0.1,
		})
		if err == nil {
			var summary ContentSummary
			if err = extractJSON(raw, &summary); err == nil {
				a.logger.Info("content analysis completed", "technologies", len(summary.Technologies))
				return summary
			}
		}
	}

	a.logger.Error("content analysis failed", "error", err)
	return ContentSummary{
		Summary:          "Conteúdo educacional sobre programação",
		Technologies:     []string{"Programação geral"},
		Topics:           []string{"Conceitos básicos"},
		ContentTypes:     []string{"Materiais educacionais"},
		ExampleQuestions: []string{"Explique conceitos básicos de programação"},
		FileCount:        fileCount,
		Defaulted:        true,
	}
}

// firstN returns the first n bytes of s, or s when shorter. Previews
// operate on raw bytes like the rest of the dedup/context logic.
func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
