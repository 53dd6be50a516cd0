// Package otel records structured pipeline events for the reactions service.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and background drain goroutine.
// An optional RingBuffer keeps recent events in memory for the debug endpoint.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an observability event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Aggregation events
	KindAggregateStart    EventKind = "aggregate.start"
	KindAggregateComplete EventKind = "aggregate.complete"

	// Per-provider fan-out events
	KindProviderComplete EventKind = "provider.complete"
	KindProviderError    EventKind = "provider.error"
	KindProviderTimeout  EventKind = "provider.timeout"
	KindProviderSkipped  EventKind = "provider.skipped"

	// Cache events
	KindCacheHit        EventKind = "cache.hit"
	KindCacheMiss       EventKind = "cache.miss"
	KindCacheInvalidate EventKind = "cache.invalidate"
	KindCacheSweep      EventKind = "cache.sweep"

	// Generation events
	KindGenFallback EventKind = "gen.fallback"
	KindGenRefused  EventKind = "gen.refused"
	KindGenComplete EventKind = "gen.complete"
	KindAudioFailed EventKind = "gen.audio_failed"

	// Store events
	KindStoreError EventKind = "store.error"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // component: "reactions", "cache", "brain"
	SessionID string         `json:"session_id,omitempty"` // random hex, same for entire process
	RequestID string         `json:"rid,omitempty"`        // aggregation correlation ID
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Source    string         `json:"source,omitempty"` // provider name
	Query     string         `json:"query,omitempty"`
	Key       string         `json:"key,omitempty"` // cache key
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
