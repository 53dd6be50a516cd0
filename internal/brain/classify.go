package brain

import (
	"context"
	"fmt"
	"strings"

	"github.com/abelbrown/reactions/internal/logging"
	"github.com/abelbrown/reactions/internal/model"
)

// Categories are the labels a web reaction can receive.
var Categories = []string{"news", "opinion", "analysis", "blog", "forum", "video", "reference", "other"}

const classifySystemPrompt = `You are a news librarian. You label web pages by what kind of coverage they are, using only the titles and snippets given.`

// Classifier labels web candidates in a single batched generation call.
type Classifier struct {
	chain *Chain[Request, Response]
}

// NewClassifier wraps a text chain.
func NewClassifier(chain *Chain[Request, Response]) *Classifier {
	return &Classifier{chain: chain}
}

// Classify returns a copy of web with Category and CategoryReason set where
// the model produced a usable label. On any failure the copy is unlabeled.
func (c *Classifier) Classify(ctx context.Context, web []model.Candidate) []model.Candidate {
	out := append([]model.Candidate(nil), web...)
	if c == nil || c.chain == nil || len(out) == 0 {
		return out
	}

	var b strings.Builder
	b.WriteString("Label each numbered result with exactly one category from: ")
	b.WriteString(strings.Join(Categories, ", "))
	b.WriteString(".\nRespond with one line per result in the form:\n<number> | <category> | <one sentence justification>\n\n")
	for i, w := range out {
		fmt.Fprintf(&b, "%d. %s (%s): %s\n", i+1, Sanitize(w.Title), Sanitize(w.Source), clip(Sanitize(w.Snippet), 150))
	}

	res := c.chain.Run(ctx, Request{
		SystemPrompt: classifySystemPrompt,
		UserPrompt:   b.String(),
		MaxTokens:    60 * len(out),
		Temperature:  0.2,
	})
	if !res.OK() {
		logging.Warn("classification skipped", "reason", res.Reason)
		return out
	}

	labels := parseClassification(res.Value.Content, len(out))
	for i, l := range labels {
		out[i].Category = l.category
		out[i].CategoryReason = l.reason
	}
	logging.Debug("classification complete", "labeled", len(labels), "total", len(out))
	return out
}

type label struct {
	category string
	reason   string
}

// parseClassification reads "<n> | <category> | <reason>" lines. Unknown
// categories and out-of-range numbers are skipped.
func parseClassification(content string, n int) map[int]label {
	valid := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		valid[c] = true
	}

	labels := make(map[int]label)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) < 3 {
			continue
		}

		var num int
		numStr := strings.Trim(strings.TrimSpace(parts[0]), ".)#")
		if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil || num < 1 || num > n {
			continue
		}
		cat := strings.ToLower(strings.Trim(strings.TrimSpace(parts[1]), "*`\"'"))
		if !valid[cat] {
			continue
		}
		reason := strings.TrimSpace(parts[2])
		if reason == "" || IsRefusal(reason) {
			continue
		}
		labels[num-1] = label{category: cat, reason: clip(reason, 240)}
	}
	return labels
}
