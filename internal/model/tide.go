package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TideIndex defines persistence operations for tide summary records, the
// lightweight rows backing list views.
type TideIndex interface {
	Create(ctx context.Context, summary TideSummary) error
	Update(ctx context.Context, summary TideSummary) error
	GetByID(ctx context.Context, id string) (TideSummary, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]TideSummary, error)
}

// TideStatus enumerates lifecycle states of a tide.
type TideStatus string

const (
	// TideStatusActive is the initial state of every tide.
	TideStatusActive TideStatus = "active"
	// TideStatusPaused is a resumable interruption.
	TideStatusPaused TideStatus = "paused"
	// TideStatusCompleted is terminal. No appends are accepted afterwards.
	TideStatusCompleted TideStatus = "completed"
)

// CanTransitionTo reports whether the status state machine allows moving
// from s to next. Allowed: active→paused, active→completed, paused→active,
// paused→completed.
func (s TideStatus) CanTransitionTo(next TideStatus) bool {
	switch s {
	case TideStatusActive:
		return next == TideStatusPaused || next == TideStatusCompleted
	case TideStatusPaused:
		return next == TideStatusActive || next == TideStatusCompleted
	default:
		return false
	}
}

// TideSummary is the index record for one tide: everything list rendering
// needs without fetching the full document. SessionCount and LastActivityAt
// are denormalized from the document on every append.
type TideSummary struct {
	ID             string
	OwnerID        uuid.UUID
	Name           string
	Category       string
	Status         TideStatus
	DocumentKey    string
	SessionCount   int
	LastActivityAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Tide is the complete document for one tide, including all appended
// history. Stored as a JSON object keyed under the owner's namespace.
type Tide struct {
	ID            string         `json:"id"`
	OwnerID       uuid.UUID      `json:"owner_id"`
	Name          string         `json:"name"`
	Category      string         `json:"category"`
	Description   string         `json:"description"`
	Status        TideStatus     `json:"status"`
	FlowSessions  []FlowSession  `json:"flow_sessions"`
	EnergyUpdates []EnergyUpdate `json:"energy_updates"`
	TaskLinks     []TaskLink     `json:"task_links"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// FlowSession is one timed, focused work interval.
type FlowSession struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Intensity string        `json:"intensity"`
	Context   string        `json:"context,omitempty"`
}

// EnergyUpdate is a point-in-time energy reading on a 1-10 scale.
type EnergyUpdate struct {
	Level      int       `json:"level"`
	Context    string    `json:"context,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// TaskLink ties an external task or resource to a tide.
type TaskLink struct {
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Type     string    `json:"type"`
	LinkedAt time.Time `json:"linked_at"`
}

// ListFilter narrows GetByOwner results. Zero value means no filtering.
type ListFilter struct {
	Category   string
	ActiveOnly bool
}

// CreateTideParams contains caller-supplied fields for a new tide. The owner
// always comes from the auth context, never from params.
type CreateTideParams struct {
	Name        string
	Category    string
	Description string
}

// TideReport aggregates a tide's appended history for reporting.
type TideReport struct {
	TideID            string
	Name              string
	Status            TideStatus
	SessionCount      int
	TotalFlowDuration time.Duration
	MeanEnergyLevel   float64
	TaskLinkCount     int
	LastActivityAt    *time.Time
}
