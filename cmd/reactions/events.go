package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/reactions/internal/otel"
)

var (
	flagTail   int
	flagFollow bool
	flagKind   string
	flagLevel  string
	flagComp   string
	flagRID    string
	flagRaw    bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "JSONL event log viewer",
	RunE:  runEvents,
}

func init() {
	f := eventsCmd.Flags()
	f.IntVar(&flagTail, "tail", 50, "number of recent lines to show")
	f.BoolVarP(&flagFollow, "follow", "f", false, "follow mode (like tail -f)")
	f.StringVar(&flagKind, "kind", "", "filter by event kind prefix (e.g. 'provider')")
	f.StringVar(&flagLevel, "level", "", "minimum level: debug, info, warn, error")
	f.StringVar(&flagComp, "comp", "", "filter by component name")
	f.StringVar(&flagRID, "rid", "", "filter by request ID")
	f.BoolVar(&flagRaw, "json", false, "output raw JSON lines")
	rootCmd.AddCommand(eventsCmd)
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level otel.Level) int {
	switch level {
	case otel.LevelInfo:
		return 1
	case otel.LevelWarn:
		return 2
	case otel.LevelError:
		return 3
	default:
		return 0
	}
}

type eventFilter struct {
	kind, comp, rid string
	minLevel        int
}

func (f eventFilter) match(ev otel.Event) bool {
	if f.kind != "" && !strings.HasPrefix(string(ev.Kind), f.kind) {
		return false
	}
	if levelRank(ev.Level) < f.minLevel {
		return false
	}
	if f.comp != "" && ev.Comp != f.comp {
		return false
	}
	if f.rid != "" && ev.RequestID != f.rid {
		return false
	}
	return true
}

func runEvents(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, err := latestEventLog(cfg.EventsDir())
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	filter := eventFilter{kind: flagKind, comp: flagComp, rid: flagRID, minLevel: levelRank(otel.Level(flagLevel))}
	out := cmd.OutOrStdout()

	for _, l := range readTailLines(f, flagTail, filter.match) {
		fmt.Fprintln(out, formatEvent(l.ev, l.raw, flagRaw))
	}
	if !flagFollow {
		return nil
	}

	ctx := commandContext(cmd)
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				return err
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		line = trimLine(line)
		if len(line) == 0 {
			continue
		}
		var ev otel.Event
		if json.Unmarshal(line, &ev) != nil {
			continue
		}
		if filter.match(ev) {
			fmt.Fprintln(out, formatEvent(ev, line, flagRaw))
		}
	}
}

// latestEventLog returns the newest events-*.jsonl file in dir.
func latestEventLog(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "events-*.jsonl"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no event log in %s; run 'reactions serve' first", dir)
	}
	// dated names sort chronologically
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

func formatEvent(ev otel.Event, raw []byte, rawJSON bool) string {
	if rawJSON {
		return string(raw)
	}
	lvl := strings.ToUpper(string(ev.Level))
	if lvl == "" {
		lvl = "?"
	}
	parts := []string{fmt.Sprintf("%s %-5s [%-9s] %-20s", ev.Time.Format("15:04:05.000"), lvl, ev.Comp, ev.Kind)}

	if ev.Msg != "" {
		parts = append(parts, "- "+ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Source != "" {
		parts = append(parts, "src="+ev.Source)
	}
	if ev.Query != "" {
		parts = append(parts, fmt.Sprintf("q=%q", ev.Query))
	}
	if ev.Key != "" {
		parts = append(parts, "key="+ev.Key)
	}
	if ev.RequestID != "" {
		parts = append(parts, "rid="+ev.RequestID[:min(8, len(ev.RequestID))])
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}
	return strings.Join(parts, " ")
}

type parsedLine struct {
	ev  otel.Event
	raw []byte
}

// readTailLines reads r and returns the last n lines matching the filter.
func readTailLines(r io.Reader, n int, match func(otel.Event) bool) []parsedLine {
	scanner := bufio.NewScanner(r)
	// Allow large lines (some events may have big Extra maps)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	var ring []parsedLine
	if n > 0 {
		ring = make([]parsedLine, 0, n)
	}

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev otel.Event
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		if !match(ev) {
			continue
		}
		// scanner reuses the buffer
		rawCopy := append([]byte(nil), raw...)

		if n <= 0 {
			continue
		}
		if len(ring) < n {
			ring = append(ring, parsedLine{ev: ev, raw: rawCopy})
		} else {
			copy(ring, ring[1:])
			ring[n-1] = parsedLine{ev: ev, raw: rawCopy}
		}
	}
	return ring
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}
