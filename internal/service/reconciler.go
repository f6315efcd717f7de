package service

import (
	"context"
	"time"

	"github.com/tidecraft/tides-server/internal/logger"
	"github.com/tidecraft/tides-server/internal/model"
)

// IndexScanner enumerates every tide summary regardless of owner. Only the
// reconciler needs this; it is kept off the TideIndex contract so the
// orchestrator cannot reach across tenants.
type IndexScanner interface {
	All(ctx context.Context) ([]model.TideSummary, error)
}

// Reconciler periodically verifies that every index record resolves to a
// document at its owner-scoped address, closing dual-write gaps left by a
// failed create or append.
type Reconciler struct {
	scanner IndexScanner
	docs    model.DocumentStore
	logger  *logger.Logger
	repair  bool
}

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Checked   int
	Missing   int
	Repaired  int
	Corrupted int
}

func NewReconciler(scanner IndexScanner, docs model.DocumentStore, logger *logger.Logger, repair bool) *Reconciler {
	return &Reconciler{
		scanner: scanner,
		docs:    docs,
		logger:  logger,
		repair:  repair,
	}
}

// Run executes a reconciliation pass every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := r.RunOnce(ctx)
			if err != nil {
				r.logger.Error("Reconciler: pass failed", "error", err.Error())
				continue
			}
			r.logger.Info("Reconciler: pass completed",
				"checked", result.Checked,
				"missing", result.Missing,
				"repaired", result.Repaired,
				"corrupted", result.Corrupted)
		}
	}
}

// RunOnce scans all index records once. A record whose document key does not
// match the owner-scoped address it should have is counted as corrupted and
// never repaired automatically. A record whose document is absent is either
// re-materialized from the summary (with empty history) or just counted,
// depending on the repair setting.
func (r *Reconciler) RunOnce(ctx context.Context) (ReconcileResult, error) {
	summaries, err := r.scanner.All(ctx)
	if err != nil {
		return ReconcileResult{}, err
	}

	var result ReconcileResult
	for _, summary := range summaries {
		result.Checked++

		if summary.DocumentKey != documentKey(summary.OwnerID, summary.ID) {
			result.Corrupted++
			r.logger.Error("Reconciler: document key does not match owner scope",
				"tide_id", summary.ID,
				"owner_id", summary.OwnerID,
				"document_key", summary.DocumentKey)
			continue
		}

		exists, err := r.docs.Exists(ctx, summary.DocumentKey)
		if err != nil {
			r.logger.Error("Reconciler: failed to stat document",
				"tide_id", summary.ID,
				"error", err.Error())
			continue
		}
		if exists {
			continue
		}

		result.Missing++
		if !r.repair {
			r.logger.Warn("Reconciler: index record has no document",
				"tide_id", summary.ID,
				"document_key", summary.DocumentKey)
			continue
		}

		if err := r.docs.Put(ctx, summary.DocumentKey, rehydrate(summary)); err != nil {
			r.logger.Error("Reconciler: failed to rehydrate document",
				"tide_id", summary.ID,
				"error", err.Error())
			continue
		}
		result.Repaired++
		r.logger.Info("Reconciler: rehydrated missing document",
			"tide_id", summary.ID,
			"document_key", summary.DocumentKey)
	}

	return result, nil
}

// rehydrate rebuilds a minimal document from an index record. Appended
// history cannot be recovered, only the core fields the summary carries.
func rehydrate(summary model.TideSummary) model.Tide {
	return model.Tide{
		ID:            summary.ID,
		OwnerID:       summary.OwnerID,
		Name:          summary.Name,
		Category:      summary.Category,
		Status:        summary.Status,
		FlowSessions:  []model.FlowSession{},
		EnergyUpdates: []model.EnergyUpdate{},
		TaskLinks:     []model.TaskLink{},
		CreatedAt:     summary.CreatedAt,
		UpdatedAt:     time.Now().UTC(),
	}
}
