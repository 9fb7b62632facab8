package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/rosterbridge/rosterbridge/internal/engine/model"
)

type IShadowUserRepository interface {
	ListUnclaimed(ctx context.Context) ([]model.ShadowUser, error)
	UpdateClaimStatus(ctx context.Context, channel, userExtId string, status int, claimedOn time.Time) error
	BumpAttempts(ctx context.Context, channel, userExtId string) error
}

type ShadowUserRepo struct {
	db *gorm.DB
}

func NewShadowUserRepo(db *gorm.DB) IShadowUserRepository {
	return &ShadowUserRepo{db: db}
}

func (sr *ShadowUserRepo) ListUnclaimed(ctx context.Context) ([]model.ShadowUser, error) {
	var claims []model.ShadowUser
	err := sr.db.WithContext(ctx).
		Where("claim_status = ?", model.ClaimStatusUnclaimed).
		Find(&claims).Error
	if err != nil {
		return nil, storeErr("list unclaimed", err)
	}
	return claims, nil
}

// UpdateClaimStatus writes a claim's terminal status, keyed by
// (channel, user_ext_id). The guard on claim_status keeps terminal claims
// immutable: a racing pass that lost simply updates zero rows.
func (sr *ShadowUserRepo) UpdateClaimStatus(ctx context.Context, channel, userExtId string, status int, claimedOn time.Time) error {
	err := sr.db.WithContext(ctx).Model(&model.ShadowUser{}).
		Where("channel = ? AND user_ext_id = ? AND claim_status = ?",
			channel, userExtId, model.ClaimStatusUnclaimed).
		Updates(map[string]any{
			"claim_status": status,
			"claimed_on":   claimedOn,
		}).Error
	if err != nil {
		return storeErr("update claim status", err)
	}
	return nil
}

// BumpAttempts counts one more pass that found no directory match for the
// claim. The reconciler escalates to REJECTED once the configured attempt
// bound is reached.
func (sr *ShadowUserRepo) BumpAttempts(ctx context.Context, channel, userExtId string) error {
	err := sr.db.WithContext(ctx).Model(&model.ShadowUser{}).
		Where("channel = ? AND user_ext_id = ? AND claim_status = ?",
			channel, userExtId, model.ClaimStatusUnclaimed).
		Update("attempts", gorm.Expr("attempts + 1")).Error
	if err != nil {
		return storeErr("bump attempts", err)
	}
	return nil
}
