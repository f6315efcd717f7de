package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tidecraft/tides-server/internal/logger"
	"github.com/tidecraft/tides-server/internal/model"
	"github.com/tidecraft/tides-server/internal/tideid"
)

// Tide coordinates the metadata index and the document store behind one
// contract. Every operation takes an explicit AuthContext and scopes all
// reads and writes to the authenticated owner; an ownership mismatch is
// reported as not-found so callers cannot probe for other tenants' ids.
type Tide struct {
	index   model.TideIndex
	docs    model.DocumentStore
	logger  *logger.Logger
	timeout time.Duration
}

func NewTide(
	index model.TideIndex,
	docs model.DocumentStore,
	logger *logger.Logger,
	timeout time.Duration,
) *Tide {
	return &Tide{
		index:   index,
		docs:    docs,
		logger:  logger,
		timeout: timeout,
	}
}

// documentKey builds the storage address for a tide document. The owner id
// is a path segment, which makes cross-tenant addressing structurally
// impossible: nothing outside this package constructs document keys.
func documentKey(ownerID uuid.UUID, tideID string) string {
	return fmt.Sprintf("user-%s/tide-%s.json", ownerID.String(), tideID)
}

// CreateTide creates a new tide owned by the authenticated user. The index
// record is written first, then the full document; a document-write failure
// leaves the tide index-visible but detail-unreadable and is surfaced as
// ErrPartialWrite for the reconciler or the caller to repair.
func (s *Tide) CreateTide(ctx context.Context, auth model.AuthContext, params model.CreateTideParams) (model.Tide, error) {
	if !auth.Valid() {
		return model.Tide{}, model.ErrInvalidCredential
	}
	if params.Name == "" {
		return model.Tide{}, fmt.Errorf("tide name is required")
	}

	id := tideid.New()
	now := time.Now().UTC()
	key := documentKey(auth.UserID, id)

	summary := model.TideSummary{
		ID:          id,
		OwnerID:     auth.UserID,
		Name:        params.Name,
		Category:    params.Category,
		Status:      model.TideStatusActive,
		DocumentKey: key,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tide := model.Tide{
		ID:            id,
		OwnerID:       auth.UserID,
		Name:          params.Name,
		Category:      params.Category,
		Description:   params.Description,
		Status:        model.TideStatusActive,
		FlowSessions:  []model.FlowSession{},
		EnergyUpdates: []model.EnergyUpdate{},
		TaskLinks:     []model.TaskLink{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.indexCreate(ctx, summary); err != nil {
		return model.Tide{}, fmt.Errorf("failed to create tide summary: %w: %w", model.ErrStorageUnavailable, err)
	}

	if err := s.docPut(ctx, key, tide); err != nil {
		s.logger.Error("Tide service: document write failed after index write",
			"tide_id", id,
			"user_id", auth.UserID,
			"error", err.Error())
		return model.Tide{}, fmt.Errorf("%w: %w", model.ErrPartialWrite, err)
	}

	return tide, nil
}

// GetTide returns the full document for an owned tide. Unknown ids and ids
// owned by other users are both ErrNotFound.
func (s *Tide) GetTide(ctx context.Context, auth model.AuthContext, id string) (model.Tide, error) {
	summary, err := s.getOwnedSummary(ctx, auth, id)
	if err != nil {
		return model.Tide{}, err
	}

	tide, err := s.docGet(ctx, summary.DocumentKey)
	if errors.Is(err, model.ErrNotFound) {
		// Index record without a document: a known dual-write gap, repaired
		// by the reconciler. The caller just sees not-found.
		s.logger.Warn("Tide service: index record has no document",
			"tide_id", id,
			"document_key", summary.DocumentKey)
		return model.Tide{}, model.ErrNotFound
	}
	if err != nil {
		return model.Tide{}, fmt.Errorf("failed to get document: %w: %w", model.ErrStorageUnavailable, err)
	}

	return tide, nil
}

// ListTides returns summaries for the authenticated user, newest first. The
// owner always comes from the auth context; there is deliberately no way
// for a caller to list another user's tides.
func (s *Tide) ListTides(ctx context.Context, auth model.AuthContext, filter model.ListFilter) ([]model.TideSummary, error) {
	if !auth.Valid() {
		return nil, model.ErrInvalidCredential
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	summaries, err := s.index.GetByOwner(storeCtx, auth.UserID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tides: %w: %w", model.ErrStorageUnavailable, err)
	}

	return summaries, nil
}

// AddFlowSession appends one focused work interval to an owned tide.
func (s *Tide) AddFlowSession(ctx context.Context, auth model.AuthContext, id string, session model.FlowSession) (model.Tide, error) {
	if session.Duration <= 0 {
		return model.Tide{}, fmt.Errorf("session duration must be positive")
	}
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now().UTC()
	}

	return s.appendToTide(ctx, auth, id, session.StartedAt, true, func(tide *model.Tide) {
		tide.FlowSessions = append(tide.FlowSessions, session)
	})
}

// AddEnergyUpdate appends one energy reading to an owned tide.
func (s *Tide) AddEnergyUpdate(ctx context.Context, auth model.AuthContext, id string, update model.EnergyUpdate) (model.Tide, error) {
	if update.Level < 1 || update.Level > 10 {
		return model.Tide{}, fmt.Errorf("energy level must be between 1 and 10, got %d", update.Level)
	}
	if update.RecordedAt.IsZero() {
		update.RecordedAt = time.Now().UTC()
	}

	return s.appendToTide(ctx, auth, id, update.RecordedAt, false, func(tide *model.Tide) {
		tide.EnergyUpdates = append(tide.EnergyUpdates, update)
	})
}

// AddTaskLink appends one external task link to an owned tide.
func (s *Tide) AddTaskLink(ctx context.Context, auth model.AuthContext, id string, link model.TaskLink) (model.Tide, error) {
	if link.URL == "" {
		return model.Tide{}, fmt.Errorf("link url is required")
	}
	if link.LinkedAt.IsZero() {
		link.LinkedAt = time.Now().UTC()
	}

	return s.appendToTide(ctx, auth, id, link.LinkedAt, false, func(tide *model.Tide) {
		tide.TaskLinks = append(tide.TaskLinks, link)
	})
}

// TransitionStatus moves an owned tide through the status state machine:
// active→paused, paused→active, and either into the terminal completed.
func (s *Tide) TransitionStatus(ctx context.Context, auth model.AuthContext, id string, next model.TideStatus) (model.Tide, error) {
	summary, err := s.getOwnedSummary(ctx, auth, id)
	if err != nil {
		return model.Tide{}, err
	}

	if !summary.Status.CanTransitionTo(next) {
		return model.Tide{}, fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, summary.Status, next)
	}

	tide, err := s.docGet(ctx, summary.DocumentKey)
	if errors.Is(err, model.ErrNotFound) {
		return model.Tide{}, model.ErrNotFound
	}
	if err != nil {
		return model.Tide{}, fmt.Errorf("failed to get document: %w: %w", model.ErrStorageUnavailable, err)
	}

	now := time.Now().UTC()
	tide.Status = next
	tide.UpdatedAt = now

	if err := s.docPut(ctx, summary.DocumentKey, tide); err != nil {
		return model.Tide{}, fmt.Errorf("failed to write document: %w: %w", model.ErrStorageUnavailable, err)
	}

	summary.Status = next
	summary.UpdatedAt = now
	if err := s.indexUpdate(ctx, summary); err != nil {
		s.logger.Error("Tide service: index update failed after document write",
			"tide_id", id,
			"error", err.Error())
		return model.Tide{}, fmt.Errorf("%w: %w", model.ErrPartialWrite, err)
	}

	return tide, nil
}

// Report aggregates an owned tide's appended history.
func (s *Tide) Report(ctx context.Context, auth model.AuthContext, id string) (model.TideReport, error) {
	tide, err := s.GetTide(ctx, auth, id)
	if err != nil {
		return model.TideReport{}, err
	}

	report := model.TideReport{
		TideID:        tide.ID,
		Name:          tide.Name,
		Status:        tide.Status,
		SessionCount:  len(tide.FlowSessions),
		TaskLinkCount: len(tide.TaskLinks),
	}

	var last time.Time
	for _, session := range tide.FlowSessions {
		report.TotalFlowDuration += session.Duration
		if session.StartedAt.After(last) {
			last = session.StartedAt
		}
	}
	if !last.IsZero() {
		report.LastActivityAt = &last
	}

	if len(tide.EnergyUpdates) > 0 {
		total := 0
		for _, update := range tide.EnergyUpdates {
			total += update.Level
		}
		report.MeanEnergyLevel = float64(total) / float64(len(tide.EnergyUpdates))
	}

	return report, nil
}

// appendToTide runs the shared append sequence: ownership check, document
// fetch, mutation, document write-back, then the denormalized index update.
// Appends are not idempotent; each call adds a new entry.
func (s *Tide) appendToTide(
	ctx context.Context,
	auth model.AuthContext,
	id string,
	activityAt time.Time,
	countsAsSession bool,
	mutate func(*model.Tide),
) (model.Tide, error) {
	summary, err := s.getOwnedSummary(ctx, auth, id)
	if err != nil {
		return model.Tide{}, err
	}

	if summary.Status == model.TideStatusCompleted {
		return model.Tide{}, model.ErrTideCompleted
	}

	tide, err := s.docGet(ctx, summary.DocumentKey)
	if errors.Is(err, model.ErrNotFound) {
		s.logger.Warn("Tide service: append against index record with no document",
			"tide_id", id,
			"document_key", summary.DocumentKey)
		return model.Tide{}, model.ErrNotFound
	}
	if err != nil {
		return model.Tide{}, fmt.Errorf("failed to get document: %w: %w", model.ErrStorageUnavailable, err)
	}

	now := time.Now().UTC()
	mutate(&tide)
	tide.UpdatedAt = now

	if err := s.docPut(ctx, summary.DocumentKey, tide); err != nil {
		return model.Tide{}, fmt.Errorf("failed to write document: %w: %w", model.ErrStorageUnavailable, err)
	}

	if countsAsSession {
		summary.SessionCount = len(tide.FlowSessions)
	}
	activity := activityAt
	summary.LastActivityAt = &activity
	summary.UpdatedAt = now

	if err := s.indexUpdate(ctx, summary); err != nil {
		s.logger.Error("Tide service: index update failed after document write",
			"tide_id", id,
			"error", err.Error())
		return model.Tide{}, fmt.Errorf("%w: %w", model.ErrPartialWrite, err)
	}

	return tide, nil
}

// getOwnedSummary loads an index record and enforces ownership. Missing
// records and records owned by someone else are indistinguishable.
func (s *Tide) getOwnedSummary(ctx context.Context, auth model.AuthContext, id string) (model.TideSummary, error) {
	if !auth.Valid() {
		return model.TideSummary{}, model.ErrInvalidCredential
	}
	if id == "" {
		return model.TideSummary{}, model.ErrNotFound
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	summary, err := s.index.GetByID(storeCtx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.TideSummary{}, model.ErrNotFound
	}
	if err != nil {
		return model.TideSummary{}, fmt.Errorf("failed to get tide summary: %w: %w", model.ErrStorageUnavailable, err)
	}

	if summary.OwnerID != auth.UserID {
		return model.TideSummary{}, model.ErrNotFound
	}

	return summary, nil
}

func (s *Tide) indexCreate(ctx context.Context, summary model.TideSummary) error {
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.index.Create(storeCtx, summary)
}

func (s *Tide) indexUpdate(ctx context.Context, summary model.TideSummary) error {
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.index.Update(storeCtx, summary)
}

func (s *Tide) docPut(ctx context.Context, key string, tide model.Tide) error {
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.docs.Put(storeCtx, key, tide)
}

func (s *Tide) docGet(ctx context.Context, key string) (model.Tide, error) {
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.docs.Get(storeCtx, key)
}

func (s *Tide) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
