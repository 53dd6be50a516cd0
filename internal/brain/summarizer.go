package brain

import (
	"context"
	"strings"
	"unicode/utf8"
)

// minSummaryInput: shorter text is returned as its own fallback without a
// generation call.
const minSummaryInput = 50

// Summarizer produces short summaries through the text chain. It never
// returns provider output that failed acceptance; callers always get either
// a generated summary or the deterministic Fallback of the input.
type Summarizer struct {
	chain *Chain[Request, Response]
}

// NewSummarizer wraps a text chain.
func NewSummarizer(chain *Chain[Request, Response]) *Summarizer {
	return &Summarizer{chain: chain}
}

// Summarize condenses text according to task.
func (s *Summarizer) Summarize(ctx context.Context, text, task string) string {
	clean := Sanitize(text)
	if utf8.RuneCountInString(clean) < minSummaryInput || s.chain == nil {
		return Fallback(text)
	}
	if task == "" {
		task = DefaultSummaryTask
	}

	out := s.chain.Run(ctx, Request{
		SystemPrompt: summarySystemPrompt,
		UserPrompt:   task + "\n\nContent:\n" + clean,
		MaxTokens:    300,
		Temperature:  0.7,
	})
	if !out.OK() {
		return Fallback(text)
	}
	return strings.TrimSpace(out.Value.Content)
}
