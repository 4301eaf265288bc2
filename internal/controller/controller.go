// Package controller defines the contract between list controllers and the
// surfaces that render them.
//
// Controllers sit between the feed repository (data) and the consumer (UI),
// owning pagination, staleness, and read-state bookkeeping.
//
// # Architecture
//
//	┌────────────┐     ┌────────────┐     ┌──────────┐
//	│ Repository │ ──> │ Controller │ ──> │ Consumer │
//	│ (feed+db)  │     │   (state)  │     │ (CLI/UI) │
//	└────────────┘     └────────────┘     └──────────┘
//
// # Controllers
//
// Each list surface has a dedicated controller:
//   - FeedListController: category-scoped paged browsing with a read-state
//     overlay
//   - SearchController: one-shot keyword/date-range search, independent of
//     the browsing list
//
// Controllers communicate with consumers via event channels. When a refresh
// completes, the controller sends an EventRefreshCompleted with the new list.
//
// # Concurrency
//
// Controllers are safe for concurrent use. Intents (Refresh, LoadMore,
// SelectCategory) return immediately; the fetch runs on its own goroutine
// and the outcome arrives as an event. A response that lands after a newer
// intent superseded it is discarded, never merged.
//
// Event channels have buffers to prevent blocking. If a subscriber doesn't
// consume events fast enough, old events are dropped.
package controller

import (
	"github.com/yx-shi/NewsClient-sub001/internal/news"
)

// Controller is the surface-facing face of a list state machine.
type Controller interface {
	// ID uniquely identifies this controller.
	ID() string

	// Subscribe returns a channel of controller events.
	Subscribe() <-chan Event

	// Close waits for in-flight work to settle. The event channel is
	// never closed; it lives for the lifetime of the controller.
	Close()
}

// EventType categorizes controller events.
type EventType string

const (
	EventRefreshStarted   EventType = "refresh-started"
	EventRefreshCompleted EventType = "refresh-completed"
	EventAppendStarted    EventType = "append-started"
	EventAppendCompleted  EventType = "append-completed"
	EventSearchStarted    EventType = "search-started"
	EventSearchCompleted  EventType = "search-completed"
	EventSearchEmpty      EventType = "search-empty"
	EventError            EventType = "error"
)

// Event is sent to subscribers when controller state changes.
type Event struct {
	Type     EventType
	Articles []news.Article // Full current list (completed events)
	Err      error          // Populated on EventError
	Message  string         // Human-readable summary (errors, offline notices)
	Total    int            // Server-reported total (completed events)
	HasMore  bool           // Whether another page exists
	Category string         // List events: the category the result belongs to
	Query    string         // Search events: the query that produced the result
	Offline  bool           // True when the result was served from the local cache
}
