// Package question runs the per-question analyses: knowledge-level
// maturity, response-style classification, scope validation against the
// indexed corpus, and corpus characterization.
//
// Every analysis has an LLM-present and an LLM-absent path. LLM output
// is untrusted free text: the JSON object is extracted from the raw
// response and parsed, and any failure (call error, no JSON span, parse
// error) falls back to a fixed default with the reason recorded. A
// parse problem never propagates to the caller.
package question

// Analysis is the maturity assessment of one question.
// Defaulted marks results produced by a fallback path rather than a
// successful model response.
type Analysis struct {
	KnowledgeLevel string   `json:"knowledge_level"`
	Topics         []string `json:"topics"`
	Confidence     float64  `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
	Defaulted      bool     `json:"-"`
}

// Classification determines response verbosity and style.
type Classification struct {
	Type      string `json:"type"`
	Verbosity string `json:"verbosity"`
	Style     string `json:"style"`
	Reasoning string `json:"reasoning"`
	Defaulted bool   `json:"-"`
}

// ScopeVerdict gates the response branch.
type ScopeVerdict struct {
	InScope    bool    `json:"in_scope"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Defaulted  bool    `json:"-"`
}

// ContentSummary characterizes the indexed corpus; it feeds the
// out-of-scope explanation.
type ContentSummary struct {
	Summary          string   `json:"summary"`
	Technologies     []string `json:"technologies"`
	Topics           []string `json:"topics"`
	ContentTypes     []string `json:"content_types"`
	ExampleQuestions []string `json:"example_questions"`
	FileCount        int      `json:"file_count"`
	Defaulted        bool     `json:"-"`
}
