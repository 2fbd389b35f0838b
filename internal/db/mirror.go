package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/asteroid-belt/kisan/internal/models"
)

// EnqueueMirror records a pending remote mirror write and returns it. Older
// pending or failed writes to the same target are superseded so a retry can
// never overwrite a newer value.
func (db *DB) EnqueueMirror(ctx context.Context, item models.MirrorItem) (*models.MirrorItem, error) {
	if item.TargetTable == "" || item.TargetColumn == "" || item.MatchColumn == "" {
		return nil, fmt.Errorf("mirror item: table, column and match column are required")
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.Status = models.MirrorPending
	if item.NextAttemptAt.IsZero() {
		item.NextAttemptAt = time.Now()
	}
	err := db.Transaction(func(tx *DB) error {
		if err := tx.WithContext(ctx).Model(&models.MirrorItem{}).
			Where("target_table = ? AND target_column = ? AND match_column = ? AND match_value = ? AND status IN ?",
				item.TargetTable, item.TargetColumn, item.MatchColumn, item.MatchValue,
				[]models.MirrorStatus{models.MirrorPending, models.MirrorFailed}).
			Update("status", models.MirrorSuperseded).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).Create(&item).Error
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue mirror: %w", err)
	}
	return &item, nil
}

// ListDueMirror returns pending items whose next attempt is at or before now,
// oldest first.
func (db *DB) ListDueMirror(ctx context.Context, now time.Time, limit int) ([]models.MirrorItem, error) {
	var items []models.MirrorItem
	q := db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", models.MirrorPending, now).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListMirror returns all items with the given status.
func (db *DB) ListMirror(ctx context.Context, status models.MirrorStatus) ([]models.MirrorItem, error) {
	var items []models.MirrorItem
	err := db.WithContext(ctx).Where("status = ?", status).Order("created_at ASC").Find(&items).Error
	return items, err
}

// MarkMirrorDone marks a pending item as mirrored.
func (db *DB) MarkMirrorDone(ctx context.Context, id string) error {
	return db.WithContext(ctx).Model(&models.MirrorItem{}).
		Where("id = ? AND status = ?", id, models.MirrorPending).
		Updates(map[string]interface{}{
			"status":     models.MirrorDone,
			"last_error": "",
		}).Error
}

// MarkMirrorRetry records a failed attempt and schedules the next one.
// When failed is true the item is given up on. Items superseded while the
// attempt was in flight stay superseded.
func (db *DB) MarkMirrorRetry(ctx context.Context, id string, attempts int, next time.Time, lastErr string, failed bool) error {
	status := models.MirrorPending
	if failed {
		status = models.MirrorFailed
	}
	return db.WithContext(ctx).Model(&models.MirrorItem{}).
		Where("id = ? AND status = ?", id, models.MirrorPending).
		Updates(map[string]interface{}{
			"attempts":        attempts,
			"next_attempt_at": next,
			"last_error":      lastErr,
			"status":          status,
		}).Error
}

// RequeueFailedMirror moves failed items back to pending for another round.
func (db *DB) RequeueFailedMirror(ctx context.Context) (int64, error) {
	res := db.WithContext(ctx).Model(&models.MirrorItem{}).
		Where("status = ?", models.MirrorFailed).
		Updates(map[string]interface{}{
			"status":          models.MirrorPending,
			"attempts":        0,
			"next_attempt_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}
