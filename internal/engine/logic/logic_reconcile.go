package logic

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rosterbridge/rosterbridge/internal/engine/conf"
	"github.com/rosterbridge/rosterbridge/internal/engine/model"
	"github.com/rosterbridge/rosterbridge/internal/engine/repo"
	"github.com/rosterbridge/rosterbridge/pkg/crypt"
	"github.com/rosterbridge/rosterbridge/pkg/log"
	"github.com/rosterbridge/rosterbridge/pkg/metrics"
	"github.com/rosterbridge/rosterbridge/pkg/retry"
)

// ErrNoCustodianOrg is returned when the custodian organisation setting is
// absent or blank. It is a configuration fault, not a transient one: the
// pass must not silently run against an unscoped directory.
var ErrNoCustodianOrg = errors.New("custodian organisation is not configured")

type ReconcileLogic struct {
	cfg        conf.Migration
	batchRepo  repo.IBatchRepository
	shadowRepo repo.IShadowUserRepository
	gateway    repo.IDirectoryGateway
	enc        *crypt.Encryptor
}

func NewReconcileLogic(cfg conf.Migration, batchRepo repo.IBatchRepository,
	shadowRepo repo.IShadowUserRepository, gateway repo.IDirectoryGateway,
	enc *crypt.Encryptor) *ReconcileLogic {
	return &ReconcileLogic{
		cfg:        cfg,
		batchRepo:  batchRepo,
		shadowRepo: shadowRepo,
		gateway:    gateway,
		enc:        enc,
	}
}

// RunPass executes one reconciliation pass: claim the NEW batches, drain
// every UNCLAIMED claim through a bounded worker pool, close the batches.
// Claims are independent; one claim's failure never stops the pass.
func (rl *ReconcileLogic) RunPass(ctx context.Context) error {
	start := time.Now()
	defer metrics.ObservePass(start)

	custodianOrgId, err := rl.gateway.CustodianOrgID(ctx)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			metrics.ReconcilePassFailuresTotal.Inc()
			return ErrNoCustodianOrg
		}
		metrics.ReconcilePassFailuresTotal.Inc()
		return err
	}

	batches, err := rl.batchRepo.ClaimNewBatches(ctx)
	if err != nil {
		metrics.ReconcilePassFailuresTotal.Inc()
		return err
	}

	claims, err := rl.shadowRepo.ListUnclaimed(ctx)
	if err != nil {
		if reqErr := rl.batchRepo.RequeueInProgress(ctx); reqErr != nil {
			log.Errorw("failed to requeue batches after pass failure", "error", reqErr)
		}
		metrics.ReconcilePassFailuresTotal.Inc()
		return err
	}

	log.Infow("reconciliation pass starting",
		"batches", len(batches),
		"claims", len(claims),
		"custodianOrgId", custodianOrgId,
	)

	workers := rl.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	work := make(chan model.ShadowUser)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for claim := range work {
				rl.processClaim(ctx, custodianOrgId, claim)
			}
		}()
	}
	for _, claim := range claims {
		work <- claim
	}
	close(work)
	wg.Wait()

	if err := rl.batchRepo.CompleteInProgress(ctx); err != nil {
		metrics.ReconcilePassFailuresTotal.Inc()
		return err
	}

	log.Infow("reconciliation pass finished",
		"claims", len(claims),
		"tookMs", time.Since(start).Milliseconds(),
	)
	return nil
}

// processClaim is the per-claim isolation boundary: errors and panics are
// logged and counted, never propagated to the pass.
func (rl *ReconcileLogic) processClaim(ctx context.Context, custodianOrgId string, claim model.ShadowUser) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("panic while processing claim",
				"channel", claim.Channel,
				"userExtId", claim.UserExtId,
				"panic", r,
			)
			metrics.ClaimOutcomesTotal.WithLabelValues(metrics.OutcomeErrored).Inc()
		}
	}()

	outcome, err := rl.reconcile(ctx, custodianOrgId, claim)
	if err != nil {
		// transient; the claim stays UNCLAIMED and the next pass retries it
		log.Errorw("claim processing failed",
			"channel", claim.Channel,
			"userExtId", claim.UserExtId,
			"error", err,
		)
		metrics.ClaimOutcomesTotal.WithLabelValues(metrics.OutcomeErrored).Inc()
		return
	}
	metrics.ClaimOutcomesTotal.WithLabelValues(outcome).Inc()
}

// reconcile runs the decision procedure for a single claim and returns the
// metrics outcome. An error return means the claim's status was left
// untouched.
func (rl *ReconcileLogic) reconcile(ctx context.Context, custodianOrgId string, claim model.ShadowUser) (string, error) {
	matches, err := rl.gateway.FindUserByContact(ctx,
		rl.enc.Encrypt(claim.Email), rl.enc.Encrypt(claim.Phone), custodianOrgId)
	if err != nil {
		return "", err
	}

	switch {
	case len(matches) == 0:
		return rl.handleUnmatched(ctx, claim)
	case len(matches) > 1:
		// ambiguous contact details can never be resolved automatically
		log.Warnw("claim matched multiple directory users, rejecting",
			"channel", claim.Channel,
			"userExtId", claim.UserExtId,
			"matches", len(matches),
		)
		return metrics.OutcomeRejected, rl.setStatus(ctx, claim, model.ClaimStatusRejected)
	}
	matched := matches[0]

	orgId := ""
	if claim.OrgExtId != "" {
		orgId, err = rl.gateway.FindOrgIDByExternalID(ctx, claim.OrgExtId, claim.Channel)
		if err != nil {
			return "", err
		}
	}

	if rl.alreadySatisfied(claim, matched, orgId) {
		// nothing to mutate; record the external identity link and close
		if err := rl.gateway.UpsertExternalIdentity(ctx, claim.Channel, claim.UserExtId, matched.Id, claim.AddedBy); err != nil {
			return "", err
		}
		return metrics.OutcomeClaimed, rl.setStatus(ctx, claim, model.ClaimStatusClaimed)
	}

	rootOrgId, err := rl.gateway.FindRootOrgIDByChannel(ctx, claim.Channel)
	if err != nil {
		return "", err
	}
	if rootOrgId == "" {
		log.Warnw("claim carries unknown channel, rejecting",
			"channel", claim.Channel,
			"userExtId", claim.UserExtId,
		)
		return metrics.OutcomeRejected, rl.setStatus(ctx, claim, model.ClaimStatusRejected)
	}

	if err := rl.applyClaim(ctx, claim, matched.Id, rootOrgId, orgId); err != nil {
		return "", err
	}
	return metrics.OutcomeClaimed, rl.setStatus(ctx, claim, model.ClaimStatusClaimed)
}

// applyClaim performs the full mutation sequence for an agreed match:
// primary profile, membership set, index re-projection, identity mapping.
// The primary store is always written before the index.
func (rl *ReconcileLogic) applyClaim(ctx context.Context, claim model.ShadowUser, userId, rootOrgId, orgId string) error {
	update := model.UserProfileUpdate{
		Name:      claim.Name,
		Status:    claim.UserStatus,
		IsDeleted: claim.UserStatus != model.UserStatusActive,
		UserType:  model.UserTypeTeacher,
		Channel:   claim.Channel,
		RootOrgId: rootOrgId,
		UpdatedBy: claim.AddedBy,
	}
	if err := rl.gateway.UpdateUserProfile(ctx, userId, update); err != nil {
		return err
	}

	orgIds := []string{rootOrgId}
	if orgId != "" && orgId != rootOrgId {
		orgIds = append(orgIds, orgId)
	}
	if err := rl.gateway.ReplaceMembership(ctx, userId, orgIds); err != nil {
		return err
	}

	// index writes are flaky under load; a short retry keeps the
	// primary store and the index from drifting apart
	err := retry.Do(ctx, func(ctx context.Context) error {
		return rl.gateway.ReindexUser(ctx, userId)
	}, retry.WithMaxAttempts(3), retry.WithBackoff(retry.Exponential(200*time.Millisecond)))
	if err != nil {
		return err
	}

	return rl.gateway.UpsertExternalIdentity(ctx, claim.Channel, claim.UserExtId, userId, claim.AddedBy)
}

// handleUnmatched bumps the claim's attempt counter and escalates to
// REJECTED once the bound is reached, otherwise the claim waits for the
// directory to catch up.
func (rl *ReconcileLogic) handleUnmatched(ctx context.Context, claim model.ShadowUser) (string, error) {
	if claim.Attempts+1 >= rl.cfg.MaxAttempts {
		log.Warnw("claim exhausted its match attempts, rejecting",
			"channel", claim.Channel,
			"userExtId", claim.UserExtId,
			"attempts", claim.Attempts+1,
		)
		return metrics.OutcomeRejected, rl.setStatus(ctx, claim, model.ClaimStatusRejected)
	}
	if err := rl.shadowRepo.BumpAttempts(ctx, claim.Channel, claim.UserExtId); err != nil {
		return "", err
	}
	return metrics.OutcomeUnmatched, nil
}

// alreadySatisfied reports whether the matched directory user already agrees
// with the claim: same name ignoring case, same activation status, and
// membership in the claimed organisation when one was named.
func (rl *ReconcileLogic) alreadySatisfied(claim model.ShadowUser, matched model.UserDoc, orgId string) bool {
	if !strings.EqualFold(claim.Name, matched.Name) {
		return false
	}
	if claim.UserStatus != matched.Status {
		return false
	}
	if orgId != "" {
		found := false
		for _, id := range matched.OrganisationIds() {
			if id == orgId {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (rl *ReconcileLogic) setStatus(ctx context.Context, claim model.ShadowUser, status int) error {
	return rl.shadowRepo.UpdateClaimStatus(ctx, claim.Channel, claim.UserExtId, status, time.Now())
}
