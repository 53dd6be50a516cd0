// Package filter provides pure filter functions over aggregated reactions.
// All functions are simple: candidates in, candidates out. No side effects.
package filter

import (
	"net/url"
	"path"
	"strings"

	"github.com/abelbrown/reactions/internal/model"
)

// commonPrefixes are prefixes commonly used in news titles that should be
// ignored when comparing titles across sources.
var commonPrefixes = []string{
	"breaking:",
	"update:",
	"updated:",
	"exclusive:",
	"just in:",
	"developing:",
	"watch:",
	"live:",
	"opinion:",
	"analysis:",
	"review:",
}

// downloadExtensions mark URLs that serve a file rather than a page.
var downloadExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".csv": true, ".epub": true,
	".zip": true, ".rar": true, ".7z": true, ".tar": true, ".gz": true, ".tgz": true,
	".exe": true, ".msi": true, ".dmg": true, ".pkg": true, ".apk": true, ".iso": true, ".bin": true,
	".mp3": true, ".mp4": true, ".mov": true, ".wav": true,
}

// downloadPathMarkers are path fragments that usually trigger a download.
var downloadPathMarkers = []string{
	"/download/",
	"/downloads/",
	"/attachment/",
	"/attachments/",
	"/getfile",
	"/file/download",
}

// Apply runs the web filter pipeline in order: self-citation exclusion,
// misclassified Reddit links, titles Reddit already covers, duplicate URLs,
// then download-risk tagging. The input is not modified.
func Apply(q model.Query, web []model.Candidate, reddit []model.RankedCandidate) []model.Candidate {
	out := SameDomain(web, q)
	out = RedditURLs(out)
	out = CrossSourceTitles(out, reddit)
	out = DedupURLs(out)
	return TagDownloadRisk(out)
}

// SameDomain drops web candidates hosted on the query URL's domain. Topic
// queries pass everything through.
func SameDomain(web []model.Candidate, q model.Query) []model.Candidate {
	if len(web) == 0 {
		return []model.Candidate{}
	}
	if !q.IsURL() || q.Domain == "" {
		return append([]model.Candidate{}, web...)
	}

	result := make([]model.Candidate, 0, len(web))
	for _, c := range web {
		if model.Domain(c.URL) == q.Domain {
			continue
		}
		result = append(result, c)
	}
	return result
}

// RedditURLs drops web candidates that point at reddit.com.
func RedditURLs(web []model.Candidate) []model.Candidate {
	result := make([]model.Candidate, 0, len(web))
	for _, c := range web {
		if model.IsRedditURL(c.URL) {
			continue
		}
		result = append(result, c)
	}
	return result
}

// normalizeTitle normalizes a title for comparison by lowercasing and
// removing common news prefixes.
func normalizeTitle(title string) string {
	normalized := strings.ToLower(strings.TrimSpace(title))

	for _, prefix := range commonPrefixes {
		if strings.HasPrefix(normalized, prefix) {
			normalized = strings.TrimSpace(strings.TrimPrefix(normalized, prefix))
			break // Only remove one prefix
		}
	}

	return normalized
}

// CrossSourceTitles drops web candidates whose title matches a Reddit
// candidate's title. Reddit is authoritative for its own content.
func CrossSourceTitles(web []model.Candidate, reddit []model.RankedCandidate) []model.Candidate {
	seen := make(map[string]bool, len(reddit))
	for _, r := range reddit {
		if t := normalizeTitle(r.Title); t != "" {
			seen[t] = true
		}
	}

	result := make([]model.Candidate, 0, len(web))
	for _, c := range web {
		if seen[normalizeTitle(c.Title)] {
			continue
		}
		result = append(result, c)
	}
	return result
}

// DedupURLs removes web candidates with the same URL once query strings,
// fragments and trailing slashes are ignored. First occurrence wins.
func DedupURLs(web []model.Candidate) []model.Candidate {
	seen := make(map[string]bool, len(web))
	result := make([]model.Candidate, 0, len(web))
	for _, c := range web {
		key := strings.ToLower(model.StripURL(c.URL))
		if key != "" && seen[key] {
			continue
		}
		if key != "" {
			seen[key] = true
		}
		result = append(result, c)
	}
	return result
}

// TagDownloadRisk returns a copy of web with DownloadRisk set on candidates
// whose URL looks like a file download. Nothing is removed.
func TagDownloadRisk(web []model.Candidate) []model.Candidate {
	result := make([]model.Candidate, len(web))
	for i, c := range web {
		c.DownloadRisk = IsDownload(c.URL)
		result[i] = c
	}
	return result
}

// IsDownload reports whether rawURL likely serves a file.
func IsDownload(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p := strings.ToLower(u.Path)
	if downloadExtensions[path.Ext(p)] {
		return true
	}
	for _, m := range downloadPathMarkers {
		if strings.Contains(p, m) {
			return true
		}
	}
	qs := u.Query()
	return qs.Has("download") || qs.Get("dl") == "1" || qs.Get("export") == "pdf"
}
