package brain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/abelbrown/reactions/internal/model"
)

// maxPromptItems bounds each reaction section of the commentary prompt.
const maxPromptItems = 5

const commentarySystemPrompt = `You are a careful and accurate media analyst. You write short spoken commentary about how people reacted to a news article. You only use what appears in the material you are given.`

const commentaryRules = `RULES:
- Use only names, titles, publications and facts that appear literally above. Never invent people, outlets, quotes or numbers.
- "[link]" marks a removed URL. Ignore it; never try to open, guess or describe a link.
- If a section says "none found", say reactions there were limited instead of guessing.
- Do not mention that you are an AI or what you can or cannot access.
- Write three short paragraphs, about 200 words in total, suitable to be read aloud.`

const summarySystemPrompt = `You summarize text faithfully and briefly. Use only the text provided. "[link]" marks a removed URL; ignore it.`

// ArticleSummaryTask asks for the article summary used in URL aggregations.
const ArticleSummaryTask = "Provide a concise 100-word summary of this article, highlighting the main points and key information."

// DefaultSummaryTask is used when a caller passes no task.
const DefaultSummaryTask = "Summarize this content and classify its sentiment."

// BuildCommentaryPrompt assembles the commentary prompt strictly from the
// given fields. Every free-text input is sanitized.
func BuildCommentaryPrompt(article model.Article, web []model.Candidate, reddit []model.RankedCandidate) Request {
	headline, author := article.Title, article.Author
	if author == "" {
		headline, author = SplitAuthor(article.Title)
	}
	source := article.Source
	if source == "" {
		source = article.Domain
	}

	var b strings.Builder
	b.WriteString("ARTICLE:\n")
	fmt.Fprintf(&b, "Title: %s\n", Sanitize(headline))
	if author != "" {
		fmt.Fprintf(&b, "Author: %s\n", Sanitize(author))
	}
	if source != "" {
		fmt.Fprintf(&b, "Source: %s\n", Sanitize(source))
	}
	if article.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", Sanitize(article.Summary))
	}

	b.WriteString("\nWEB REACTIONS:\n")
	if len(web) == 0 {
		b.WriteString("none found\n")
	}
	for i, w := range web {
		if i == maxPromptItems {
			break
		}
		src := w.Source
		if src == "" {
			src = model.Domain(w.URL)
		}
		fmt.Fprintf(&b, "%d. %s (%s): %s\n", i+1, Sanitize(w.Title), Sanitize(src), clip(Sanitize(w.Snippet), 150))
	}

	b.WriteString("\nREDDIT DISCUSSIONS:\n")
	if len(reddit) == 0 {
		b.WriteString("none found\n")
	}
	for i, r := range reddit {
		if i == maxPromptItems {
			break
		}
		fmt.Fprintf(&b, "%d. [%s] r/%s: %s", i+1, r.MatchType, r.Subreddit, Sanitize(r.Title))
		if r.Summary != "" {
			fmt.Fprintf(&b, " (%s)", clip(Sanitize(r.Summary), 200))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(commentaryRules)

	return Request{
		SystemPrompt: commentarySystemPrompt,
		UserPrompt:   b.String(),
		MaxTokens:    400,
		Temperature:  0.5,
	}
}

// SplitAuthor separates a byline from a headline of the form
// "Headline — First Last" or "First Last - Headline". The side that looks
// like a personal name (two or three capitalized words) is the author.
func SplitAuthor(title string) (headline, author string) {
	for _, sep := range []string{" — ", " – ", " - "} {
		i := strings.LastIndex(title, sep)
		if i <= 0 {
			continue
		}
		left, right := strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+len(sep):])
		if looksLikeName(right) {
			return left, right
		}
		if looksLikeName(left) {
			return right, left
		}
	}
	return title, ""
}

func looksLikeName(s string) bool {
	words := strings.Fields(s)
	if len(words) < 2 || len(words) > 3 {
		return false
	}
	for _, w := range words {
		first, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsUpper(first) || strings.ToUpper(w) == w {
			return false
		}
		for _, r := range w {
			if !unicode.IsLetter(r) && r != '.' && r != '\'' && r != '-' {
				return false
			}
		}
	}
	return true
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
