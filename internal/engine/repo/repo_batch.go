package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rosterbridge/rosterbridge/internal/engine/model"
)

type IBatchRepository interface {
	InsertBatch(ctx context.Context, batch *model.MigrationBatch, claims []model.ShadowUser) error
	ClaimNewBatches(ctx context.Context) ([]model.MigrationBatch, error)
	CompleteInProgress(ctx context.Context) error
	RequeueInProgress(ctx context.Context) error
	GetBatch(ctx context.Context, processId string) (*model.MigrationBatch, error)
}

type BatchRepo struct {
	db *gorm.DB
}

func NewBatchRepo(db *gorm.DB) IBatchRepository {
	return &BatchRepo{db: db}
}

// InsertBatch persists the batch record and its derived claim rows in one
// transaction: either the whole upload is staged or nothing is. A claim row
// that already exists for (channel, user_ext_id) is left untouched so a
// re-upload can never overwrite a terminal claim.
func (br *BatchRepo) InsertBatch(ctx context.Context, batch *model.MigrationBatch, claims []model.ShadowUser) error {
	err := br.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(batch).Error; err != nil {
			return err
		}
		if len(claims) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			CreateInBatches(claims, 100).Error
	})
	if err != nil {
		return storeErr("insert batch", err)
	}
	return nil
}

// ClaimNewBatches flips every NEW batch to IN_PROGRESS and returns the
// claimed set. A batch claimed here is owned by the current pass.
func (br *BatchRepo) ClaimNewBatches(ctx context.Context) ([]model.MigrationBatch, error) {
	var batches []model.MigrationBatch
	err := br.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status = ?", model.BatchStatusNew).Find(&batches).Error; err != nil {
			return err
		}
		if len(batches) == 0 {
			return nil
		}
		ids := make([]string, 0, len(batches))
		for _, b := range batches {
			ids = append(ids, b.ProcessId)
		}
		return tx.Model(&model.MigrationBatch{}).
			Where("process_id IN ?", ids).
			Updates(map[string]any{
				"status":          model.BatchStatusInProgress,
				"last_updated_on": time.Now(),
			}).Error
	})
	if err != nil {
		return nil, storeErr("claim new batches", err)
	}
	return batches, nil
}

// CompleteInProgress closes every IN_PROGRESS batch after a successful pass.
func (br *BatchRepo) CompleteInProgress(ctx context.Context) error {
	err := br.db.WithContext(ctx).Model(&model.MigrationBatch{}).
		Where("status = ?", model.BatchStatusInProgress).
		Updates(map[string]any{
			"status":          model.BatchStatusCompleted,
			"last_updated_on": time.Now(),
		}).Error
	if err != nil {
		return storeErr("complete batches", err)
	}
	return nil
}

// RequeueInProgress is the failure path of the batch driver: batches with
// retry budget left go back to NEW with the budget decremented, exhausted
// ones become FAILED.
func (br *BatchRepo) RequeueInProgress(ctx context.Context) error {
	err := br.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&model.MigrationBatch{}).
			Where("status = ? AND retry_budget <= 0", model.BatchStatusInProgress).
			Updates(map[string]any{
				"status":          model.BatchStatusFailed,
				"last_updated_on": now,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&model.MigrationBatch{}).
			Where("status = ? AND retry_budget > 0", model.BatchStatusInProgress).
			Updates(map[string]any{
				"status":          model.BatchStatusNew,
				"retry_budget":    gorm.Expr("retry_budget - 1"),
				"last_updated_on": now,
			}).Error
	})
	if err != nil {
		return storeErr("requeue batches", err)
	}
	return nil
}

func (br *BatchRepo) GetBatch(ctx context.Context, processId string) (*model.MigrationBatch, error) {
	var batch model.MigrationBatch
	err := br.db.WithContext(ctx).
		Where("process_id = ?", processId).
		First(&batch).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, storeErr("get batch", err)
	}
	return &batch, nil
}
