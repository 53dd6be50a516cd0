package reddit

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxTopicWords bounds the derived topic query.
const maxTopicWords = 6

// minTopicWords is how many informative words a topic query needs before
// the filtered form replaces the title.
const minTopicWords = 2

// publishers are site names that trail headlines after a separator.
var publishers = map[string]bool{
	"the new york times": true, "nytimes": true, "nyt": true,
	"the washington post": true, "washington post": true,
	"the wall street journal": true, "wsj": true,
	"reuters": true, "associated press": true, "ap news": true, "ap": true,
	"bbc": true, "bbc news": true, "cnn": true, "cnbc": true, "npr": true,
	"nbc news": true, "abc news": true, "cbs news": true, "fox news": true,
	"the guardian": true, "guardian": true, "bloomberg": true, "axios": true,
	"politico": true, "the hill": true, "vox": true, "the atlantic": true,
	"the verge": true, "techcrunch": true, "wired": true, "ars technica": true,
	"financial times": true, "ft": true, "al jazeera": true, "the economist": true,
	"los angeles times": true, "la times": true, "usa today": true,
	"business insider": true, "forbes": true, "time": true, "newsweek": true,
	"the intercept": true, "drop site news": true, "substack": true, "medium": true,
	"yahoo news": true, "msn": true, "sky news": true, "the independent": true,
}

// stopwords are dropped from topic queries and key words.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"of": true, "to": true, "in": true, "on": true, "for": true, "with": true,
	"at": true, "by": true, "from": true, "as": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "has": true, "have": true,
	"had": true, "it": true, "its": true, "this": true, "that": true, "these": true,
	"those": true, "what": true, "why": true, "how": true, "when": true, "where": true,
	"who": true, "which": true, "will": true, "would": true, "could": true,
	"should": true, "can": true, "may": true, "might": true, "about": true,
	"after": true, "before": true, "over": true, "under": true, "into": true,
	"than": true, "then": true, "they": true, "them": true, "their": true,
	"there": true, "here": true, "just": true, "more": true, "most": true,
	"some": true, "such": true, "only": true, "also": true, "very": true,
	"says": true, "said": true, "news": true, "report": true, "reports": true,
	"video": true, "watch": true, "live": true, "update": true, "updates": true,
	"breaking": true, "exclusive": true, "opinion": true, "analysis": true,
	"your": true, "you": true, "we": true, "our": true, "not": true, "new": true,
}

// headlineSeparators split a headline from a trailing site name.
var headlineSeparators = []string{" - ", " — ", " – ", ": "}

// StripPublisherSuffix removes a trailing site name. Text after " | " is
// always dropped; dash- or colon-separated suffixes only when they name a
// known publisher.
func StripPublisherSuffix(title string) string {
	t := strings.TrimSpace(title)
	if i := strings.Index(t, " | "); i > 0 {
		t = strings.TrimSpace(t[:i])
	}
	for {
		stripped := false
		for _, sep := range headlineSeparators {
			i := strings.LastIndex(t, sep)
			if i <= 0 {
				continue
			}
			suffix := strings.ToLower(strings.TrimSpace(t[i+len(sep):]))
			if publishers[suffix] {
				t = strings.TrimSpace(t[:i])
				stripped = true
				break
			}
		}
		if !stripped {
			return t
		}
	}
}

// tokenize splits on anything that is not a letter, digit or apostrophe.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// TopicQuery derives a lexical search query from an article title.
// Words of three characters or fewer and stopwords are dropped. When fewer
// than two informative words survive, the suffix-stripped title is returned
// verbatim.
func TopicQuery(title string) string {
	base := StripPublisherSuffix(title)
	var words []string
	seen := make(map[string]bool)
	for _, w := range tokenize(base) {
		lower := strings.ToLower(w)
		if utf8.RuneCountInString(w) <= 3 || stopwords[lower] || seen[lower] {
			continue
		}
		seen[lower] = true
		words = append(words, w)
		if len(words) == maxTopicWords {
			break
		}
	}
	if len(words) < minTopicWords {
		return base
	}
	return strings.Join(words, " ")
}

// KeyWords extracts lowercased relevance terms from a title: capitalized
// tokens of three or more characters and any token of five or more.
func KeyWords(title string) []string {
	base := StripPublisherSuffix(title)
	var keys []string
	seen := make(map[string]bool)
	for _, w := range tokenize(base) {
		lower := strings.ToLower(w)
		n := utf8.RuneCountInString(w)
		if stopwords[lower] || seen[lower] {
			continue
		}
		first, _ := utf8.DecodeRuneInString(w)
		if (unicode.IsUpper(first) && n >= 3) || n >= 5 {
			seen[lower] = true
			keys = append(keys, lower)
		}
	}
	return keys
}

// requiredMatches is the relevance threshold for a key word set.
func requiredMatches(keys []string) int {
	if len(keys) > 4 {
		return 2
	}
	return 1
}

// relevance counts how many key words appear in the post's title, body or
// subreddit. Title and body match whole words; subreddit names are run
// together ("worldnews") so they match by substring.
func relevance(p Post, keys []string) int {
	words := make(map[string]bool)
	for _, w := range tokenize(p.Title + " " + p.SelfText) {
		words[strings.ToLower(w)] = true
	}
	sub := strings.ToLower(p.Subreddit)

	n := 0
	for _, k := range keys {
		if words[k] || (sub != "" && strings.Contains(sub, k)) {
			n++
		}
	}
	return n
}
