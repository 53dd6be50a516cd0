package article

import (
	"strings"

	"github.com/abelbrown/reactions/internal/model"
)

// knownSources maps domains to publication names.
var knownSources = map[string]string{
	"cnn.com":            "CNN",
	"bbc.com":            "BBC News",
	"bbc.co.uk":          "BBC",
	"reuters.com":        "Reuters",
	"apnews.com":         "Associated Press",
	"bloomberg.com":      "Bloomberg",
	"wsj.com":            "Wall Street Journal",
	"nytimes.com":        "The New York Times",
	"washingtonpost.com": "The Washington Post",
	"theguardian.com":    "The Guardian",
	"npr.org":            "NPR",
	"cbsnews.com":        "CBS News",
	"nbcnews.com":        "NBC News",
	"foxnews.com":        "Fox News",
	"politico.com":       "Politico",
	"axios.com":          "Axios",
	"thehill.com":        "The Hill",
	"newsweek.com":       "Newsweek",
	"time.com":           "TIME",
	"usatoday.com":       "USA Today",
	"latimes.com":        "Los Angeles Times",
	"nypost.com":         "New York Post",
	"techcrunch.com":     "TechCrunch",
	"wired.com":          "Wired",
	"theverge.com":       "The Verge",
	"arstechnica.com":    "Ars Technica",
	"engadget.com":       "Engadget",
	"cnet.com":           "CNET",
	"youtube.com":        "YouTube",
	"variety.com":        "Variety",
	"espn.com":           "ESPN",
	"nature.com":         "Nature",
	"science.org":        "Science",
	"ft.com":             "Financial Times",
	"marketwatch.com":    "MarketWatch",
	"economist.com":      "The Economist",
	"theatlantic.com":    "The Atlantic",
	"vox.com":            "Vox",
}

var hostPrefixes = map[string]bool{"www": true, "m": true, "mobile": true, "amp": true, "app": true, "edition": true}

// SourceName returns a display name for the publication behind rawURL:
// a known name when the domain (or a parent domain) is recognized, else the
// first meaningful host label title-cased.
func SourceName(rawURL string) string {
	domain := model.Domain(rawURL)
	if domain == "" {
		return "Unknown Source"
	}
	for d := domain; d != ""; {
		if name, ok := knownSources[d]; ok {
			return name
		}
		i := strings.IndexByte(d, '.')
		if i < 0 {
			break
		}
		d = d[i+1:]
	}

	labels := strings.Split(domain, ".")
	label := labels[0]
	if hostPrefixes[label] && len(labels) > 2 {
		label = labels[1]
	}
	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(label))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
