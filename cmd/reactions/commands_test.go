package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/abelbrown/reactions/internal/config"
	"github.com/abelbrown/reactions/internal/model"
	"github.com/abelbrown/reactions/internal/otel"
)

func TestVersionCmd(t *testing.T) {
	original := version
	version = "test-1.0.0"
	defer func() { version = original }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "reactions test-1.0.0")
}

func TestConfigInitWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reactions", "config.yaml")
	defer func() { flagConfig, flagForce = "", false }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"config", "init", "--config", path})
	defer rootCmd.SetArgs(nil)
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "wrote "+path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	var saved config.Config
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, &saved))
	assert.Equal(t, config.DefaultConfig().Port, saved.Port)

	rootCmd.SetArgs([]string{"config", "init", "--config", path})
	assert.Error(t, rootCmd.Execute(), "existing file must not be overwritten without --force")

	rootCmd.SetArgs([]string{"config", "init", "--config", path, "--force"})
	assert.NoError(t, rootCmd.Execute())
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "aggregate", "sweep", "events", "config", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

const sampleEvents = `{"t":"2026-01-02T10:00:00Z","level":"info","kind":"aggregate.start","comp":"reactions","rid":"abcdef123456","query":"iran"}
{"t":"2026-01-02T10:00:01Z","level":"warn","kind":"provider.timeout","comp":"reactions","rid":"abcdef123456","source":"serpapi","err":"timeout"}
not json
{"t":"2026-01-02T10:00:02Z","level":"info","kind":"provider.complete","comp":"reactions","rid":"abcdef123456","source":"reddit","count":3,"dur_ms":850}
{"t":"2026-01-02T10:00:03Z","level":"debug","kind":"cache.miss","comp":"cache","key":"agg:topic:iran"}
`

func TestReadTailLinesFilters(t *testing.T) {
	all := func(otel.Event) bool { return true }
	lines := readTailLines(strings.NewReader(sampleEvents), 2, all)
	require.Len(t, lines, 2)
	assert.Equal(t, otel.KindProviderComplete, lines[0].ev.Kind)
	assert.Equal(t, otel.KindCacheMiss, lines[1].ev.Kind)

	f := eventFilter{kind: "provider", minLevel: levelRank(otel.LevelWarn)}
	lines = readTailLines(strings.NewReader(sampleEvents), 10, f.match)
	require.Len(t, lines, 1)
	assert.Equal(t, "serpapi", lines[0].ev.Source)

	f = eventFilter{comp: "cache"}
	lines = readTailLines(strings.NewReader(sampleEvents), 10, f.match)
	require.Len(t, lines, 1)

	assert.Empty(t, readTailLines(strings.NewReader(sampleEvents), 0, all))
}

func TestFormatEvent(t *testing.T) {
	lines := readTailLines(strings.NewReader(sampleEvents), 10, eventFilter{rid: "abcdef123456"}.match)
	require.Len(t, lines, 3)

	got := formatEvent(lines[2].ev, lines[2].raw, false)
	assert.Contains(t, got, "INFO")
	assert.Contains(t, got, "provider.complete")
	assert.Contains(t, got, "(850ms)")
	assert.Contains(t, got, "n=3")
	assert.Contains(t, got, "src=reddit")
	assert.Contains(t, got, "rid=abcdef12")

	assert.Equal(t, string(lines[0].raw), formatEvent(lines[0].ev, lines[0].raw, true))
}

func TestLatestEventLog(t *testing.T) {
	dir := t.TempDir()
	_, err := latestEventLog(dir)
	require.Error(t, err)

	for _, name := range []string{"events-2026-01-01.jsonl", "events-2026-01-03.jsonl", "events-2026-01-02.jsonl"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	got, err := latestEventLog(dir)
	require.NoError(t, err)
	assert.Equal(t, "events-2026-01-03.jsonl", filepath.Base(got))
}

func TestPrintResult(t *testing.T) {
	res := model.AggregationResult{
		Article: &model.Article{Title: "Acme Corp Cuts Jobs", Source: "Example News", Summary: "Cuts."},
		Web: []model.Candidate{
			{Title: "Report", Source: "Other", URL: "https://other.org/r.pdf", DownloadRisk: true, Category: "news"},
		},
		Reddit: []model.RankedCandidate{{
			Candidate: model.Candidate{Title: "Thread", Subreddit: "news", URL: "https://reddit.com/r/news/1",
				Engagement: model.Engagement{Score: 10, NumComments: 4}},
			MatchType: model.MatchURLExact,
		}},
		ComputedAt: time.Now(),
	}
	var buf bytes.Buffer
	printResult(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "Acme Corp Cuts Jobs (Example News)")
	assert.Contains(t, out, "Web (1):")
	assert.Contains(t, out, "[download] [news]")
	assert.Contains(t, out, "[url_exact] r/news: Thread (score 10, 4 comments)")
	assert.NotContains(t, out, "X (")
}
