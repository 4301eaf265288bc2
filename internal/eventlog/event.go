// Package eventlog provides structured observability for the data-access
// core.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and background drain
// goroutine. An optional RingBuffer keeps recent events in memory for the
// stats command.
package eventlog

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
	// Remote fetch events
	KindFetchPage     EventKind = "fetch.page"
	KindFetchError    EventKind = "fetch.error"
	KindFetchFallback EventKind = "fetch.fallback"

	// Search events
	KindSearchRun   EventKind = "search.run"
	KindSearchEmpty EventKind = "search.empty"
	KindSearchError EventKind = "search.error"

	// Cache events
	KindCacheUpsert EventKind = "cache.upsert"
	KindCacheClear  EventKind = "cache.clear"
	KindCacheError  EventKind = "cache.error"

	// List state events
	KindListRefresh  EventKind = "list.refresh"
	KindListAppend   EventKind = "list.append"
	KindListCategory EventKind = "list.category"
	KindStaleDrop    EventKind = "stale.drop"

	// System events
	KindSyncRun  EventKind = "sync.run"
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // component: "feedapi", "repo", "list", "search", "coord"
	SessionID string         `json:"session_id,omitempty"` // random hex, same for entire app run
	QueryID   string         `json:"qid,omitempty"`        // request correlation ID
	Dur       time.Duration  `json:"-"`                    // not serialized directly
	DurMs     float64        `json:"dur_ms,omitempty"`     // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Page      int            `json:"page,omitempty"`
	Category  string         `json:"category,omitempty"`
	Query     string         `json:"query,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`   // free text
	Extra     map[string]any `json:"extra,omitempty"` // escape hatch for unusual fields
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
