// Package sse implements Server-Sent Events that mirror the observable app state to presentation clients.
package sse

import (
	"time"

	"github.com/cinewatch/cinewatch/internal/domain"
)

// Every state mutation is published as one event carrying the new value of
// the field that changed, so a client can render from events alone after
// fetching the initial snapshot.

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventIdentity carries the current authenticated identity, or null.
	EventIdentity EventType = "state.identity"
	// EventAuthResolved fires once the auth service has reported for the first time.
	EventAuthResolved EventType = "state.auth_resolved"
	// EventReadiness carries the overall readiness state.
	EventReadiness EventType = "state.readiness"

	// EventWatchlist carries the full watchlist after a change.
	EventWatchlist EventType = "state.watchlist"
	// EventViewed carries the full viewed set after a change.
	EventViewed EventType = "state.viewed"
	// EventRatings carries the full ratings map after a change.
	EventRatings EventType = "state.ratings"
	// EventCommunity carries the community top-N ranking.
	EventCommunity EventType = "state.community"

	// EventWriteFailed reports a remote write that did not persist.
	// Local state is not rolled back.
	EventWriteFailed EventType = "sync.write_failed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// IdentityEventData is the payload for identity events. Identity is nil when signed out.
type IdentityEventData struct {
	Identity *domain.Identity `json:"identity"`
}

// AuthResolvedEventData is the payload for auth resolution events.
type AuthResolvedEventData struct {
	Pending bool `json:"pending"`
}

// ReadinessEventData is the payload for readiness events.
type ReadinessEventData struct {
	Readiness domain.Readiness `json:"readiness"`
}

// TitleSetEventData is the payload for watchlist and viewed events.
type TitleSetEventData struct {
	Titles []domain.TitleID `json:"titles"`
}

// RatingsEventData is the payload for ratings events.
type RatingsEventData struct {
	Ratings map[domain.TitleID]int `json:"ratings"`
}

// CommunityEventData is the payload for community ranking events.
type CommunityEventData struct {
	Movies []domain.CommunityMovie `json:"movies"`
}

// WriteFailedEventData is the payload for failed remote writes.
type WriteFailedEventData struct {
	Field domain.Field `json:"field"`
	Error string       `json:"error"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

func newEvent(t EventType, data any) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now()}
}

// NewIdentityEvent creates an identity event.
func NewIdentityEvent(identity *domain.Identity) Event {
	return newEvent(EventIdentity, IdentityEventData{Identity: identity.Clone()})
}

// NewAuthResolvedEvent creates an auth resolution event.
func NewAuthResolvedEvent(pending bool) Event {
	return newEvent(EventAuthResolved, AuthResolvedEventData{Pending: pending})
}

// NewReadinessEvent creates a readiness event.
func NewReadinessEvent(r domain.Readiness) Event {
	return newEvent(EventReadiness, ReadinessEventData{Readiness: r})
}

// NewWatchlistEvent creates a watchlist event. The slice is copied.
func NewWatchlistEvent(titles []domain.TitleID) Event {
	return newEvent(EventWatchlist, TitleSetEventData{Titles: append([]domain.TitleID{}, titles...)})
}

// NewViewedEvent creates a viewed set event. The slice is copied.
func NewViewedEvent(titles []domain.TitleID) Event {
	return newEvent(EventViewed, TitleSetEventData{Titles: append([]domain.TitleID{}, titles...)})
}

// NewRatingsEvent creates a ratings event. The map is copied.
func NewRatingsEvent(ratings map[domain.TitleID]int) Event {
	cp := make(map[domain.TitleID]int, len(ratings))
	for k, v := range ratings {
		cp[k] = v
	}
	return newEvent(EventRatings, RatingsEventData{Ratings: cp})
}

// NewCommunityEvent creates a community ranking event. The slice is copied.
func NewCommunityEvent(movies []domain.CommunityMovie) Event {
	return newEvent(EventCommunity, CommunityEventData{Movies: append([]domain.CommunityMovie{}, movies...)})
}

// NewWriteFailedEvent creates a failed write event.
func NewWriteFailedEvent(field domain.Field, err error) Event {
	return newEvent(EventWriteFailed, WriteFailedEventData{Field: field, Error: err.Error()})
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return newEvent(EventHeartbeat, HeartbeatEventData{ServerTime: time.Now()})
}
