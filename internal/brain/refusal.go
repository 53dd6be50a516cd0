package brain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// LinkPlaceholder replaces every URL handed to a generation provider.
const LinkPlaceholder = "[link]"

// refusalPhrases are boilerplate declines. Matched case-insensitively.
var refusalPhrases = []string{
	"as an ai",
	"as a language model",
	"as an artificial intelligence",
	"i cannot access",
	"i can't access",
	"i cannot browse",
	"i can't browse",
	"i'm unable to access",
	"i am unable to access",
	"i don't have access to",
	"i do not have access to",
	"i cannot open",
	"i can't open",
	"unable to browse",
	"i cannot view",
	"i'm not able to access",
}

// IsRefusal reports whether text contains a refusal phrase.
func IsRefusal(text string) bool {
	lower := strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	for _, p := range refusalPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

var (
	markdownLinkRe = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)
	bareURLRe      = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>()\[\]]+`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// Sanitize strips markdown links and bare URLs so providers have nothing
// to "browse". Link labels are kept; targets become LinkPlaceholder.
func Sanitize(text string) string {
	text = markdownLinkRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := markdownLinkRe.FindStringSubmatch(m)
		label := strings.TrimSpace(sub[1])
		if label == "" || bareURLRe.MatchString(label) {
			return LinkPlaceholder
		}
		return label + " " + LinkPlaceholder
	})
	text = bareURLRe.ReplaceAllString(text, LinkPlaceholder)
	return strings.TrimSpace(text)
}

// fallbackLen is the length of the deterministic raw-text fallback.
const fallbackLen = 200

// Fallback is the deterministic substitute for a refused or failed
// generation: the sanitized source text, whitespace-collapsed and cut to
// 200 characters on a word boundary with "..." appended when cut.
func Fallback(text string) string {
	s := whitespaceRe.ReplaceAllString(Sanitize(text), " ")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= fallbackLen {
		return s
	}
	r := []rune(s)[:fallbackLen]
	cut := string(r)
	if i := strings.LastIndexByte(cut, ' '); i > fallbackLen/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:-") + "..."
}
