package logic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterbridge/rosterbridge/internal/engine/model"
	"github.com/rosterbridge/rosterbridge/internal/engine/repo"
	"github.com/rosterbridge/rosterbridge/pkg/crypt"
)

func testEncryptor(t *testing.T) *crypt.Encryptor {
	t.Helper()
	enc, err := crypt.New(crypt.Conf{Secret: "test-secret", Salt: "test-salt"})
	require.NoError(t, err)
	return enc
}

func newReconciler(t *testing.T, batchRepo *fakeBatchRepo, shadowRepo *fakeShadowRepo, gateway *fakeGateway) *ReconcileLogic {
	t.Helper()
	return NewReconcileLogic(migrationConf(), batchRepo, shadowRepo, gateway, testEncryptor(t))
}

func unclaimedClaim() model.ShadowUser {
	return model.ShadowUser{
		Channel:     "tenant-a",
		UserExtId:   "EXT-001",
		Email:       "a@school.org",
		Name:        "Amy Teach",
		OrgExtId:    "ORG-01",
		UserStatus:  model.UserStatusActive,
		ClaimStatus: model.ClaimStatusUnclaimed,
		AddedBy:     "admin-1",
	}
}

func TestRunPassAgreeingMatchClaimsWithoutMutation(t *testing.T) {
	gateway := newFakeGateway()
	gateway.orgsByExt["ORG-01|tenant-a"] = "org-1"
	gateway.matches = []model.UserDoc{{
		Id:     "user-1",
		Name:   "AMY TEACH",
		Status: model.UserStatusActive,
		Organisations: []model.UserOrgDoc{
			{Id: "edge-1", OrganisationId: "org-1"},
		},
	}}
	shadowRepo := newFakeShadowRepo(unclaimedClaim())
	batchRepo := newFakeBatchRepo()

	rl := newReconciler(t, batchRepo, shadowRepo, gateway)
	require.NoError(t, rl.RunPass(context.Background()))

	claim := shadowRepo.get("tenant-a", "EXT-001")
	assert.Equal(t, model.ClaimStatusClaimed, claim.ClaimStatus)
	assert.NotNil(t, claim.ClaimedOn)

	// name comparison is case-insensitive; nothing in the directory moves
	assert.Empty(t, gateway.profileUpdates)
	assert.Empty(t, gateway.memberships)
	assert.Empty(t, gateway.reindexed)

	// the external identity link is still recorded
	assert.Equal(t, "user-1", gateway.identities["tenant-a|ext-001"])
	assert.True(t, batchRepo.completed)
}

func TestRunPassDivergingMatchAppliesClaim(t *testing.T) {
	gateway := newFakeGateway()
	gateway.rootOrgs["tenant-a"] = "root-a"
	gateway.orgsByExt["ORG-01|tenant-a"] = "org-1"
	gateway.matches = []model.UserDoc{{
		Id:     "user-1",
		Name:   "Old Name",
		Status: model.UserStatusInactive,
	}}
	shadowRepo := newFakeShadowRepo(unclaimedClaim())

	rl := newReconciler(t, newFakeBatchRepo(), shadowRepo, gateway)
	require.NoError(t, rl.RunPass(context.Background()))

	claim := shadowRepo.get("tenant-a", "EXT-001")
	assert.Equal(t, model.ClaimStatusClaimed, claim.ClaimStatus)

	update, ok := gateway.profileUpdates["user-1"]
	require.True(t, ok)
	assert.Equal(t, "Amy Teach", update.Name)
	assert.Equal(t, model.UserStatusActive, update.Status)
	assert.False(t, update.IsDeleted)
	assert.Equal(t, model.UserTypeTeacher, update.UserType)
	assert.Equal(t, "root-a", update.RootOrgId)

	assert.Equal(t, []string{"root-a", "org-1"}, gateway.memberships["user-1"])
	assert.Equal(t, []string{"user-1"}, gateway.reindexed)
	assert.Equal(t, "user-1", gateway.identities["tenant-a|ext-001"])
}

func TestRunPassInactiveClaimDeactivates(t *testing.T) {
	gateway := newFakeGateway()
	gateway.rootOrgs["tenant-a"] = "root-a"
	gateway.matches = []model.UserDoc{{Id: "user-1", Name: "Amy Teach", Status: model.UserStatusActive}}

	claim := unclaimedClaim()
	claim.OrgExtId = ""
	claim.UserStatus = model.UserStatusInactive
	shadowRepo := newFakeShadowRepo(claim)

	rl := newReconciler(t, newFakeBatchRepo(), shadowRepo, gateway)
	require.NoError(t, rl.RunPass(context.Background()))

	update := gateway.profileUpdates["user-1"]
	assert.Equal(t, model.UserStatusInactive, update.Status)
	assert.True(t, update.IsDeleted)
	assert.Equal(t, []string{"root-a"}, gateway.memberships["user-1"])
}

func TestRunPassNoMatchBumpsAttempts(t *testing.T) {
	gateway := newFakeGateway()
	shadowRepo := newFakeShadowRepo(unclaimedClaim())

	rl := newReconciler(t, newFakeBatchRepo(), shadowRepo, gateway)
	require.NoError(t, rl.RunPass(context.Background()))

	claim := shadowRepo.get("tenant-a", "EXT-001")
	assert.Equal(t, model.ClaimStatusUnclaimed, claim.ClaimStatus)
	assert.Equal(t, 1, claim.Attempts)
}

func TestRunPassNoMatchEscalatesAtAttemptBound(t *testing.T) {
	gateway := newFakeGateway()
	claim := unclaimedClaim()
	claim.Attempts = migrationConf().MaxAttempts - 1
	shadowRepo := newFakeShadowRepo(claim)

	rl := newReconciler(t, newFakeBatchRepo(), shadowRepo, gateway)
	require.NoError(t, rl.RunPass(context.Background()))

	got := shadowRepo.get("tenant-a", "EXT-001")
	assert.Equal(t, model.ClaimStatusRejected, got.ClaimStatus)
}

func TestRunPassAmbiguousMatchRejects(t *testing.T) {
	gateway := newFakeGateway()
	gateway.matches = []model.UserDoc{{Id: "user-1"}, {Id: "user-2"}}
	shadowRepo := newFakeShadowRepo(unclaimedClaim())

	rl := newReconciler(t, newFakeBatchRepo(), shadowRepo, gateway)
	require.NoError(t, rl.RunPass(context.Background()))

	claim := shadowRepo.get("tenant-a", "EXT-001")
	assert.Equal(t, model.ClaimStatusRejected, claim.ClaimStatus)
	assert.Empty(t, gateway.profileUpdates)
	assert.Empty(t, gateway.identities)
}

func TestRunPassUnknownChannelRejects(t *testing.T) {
	gateway := newFakeGateway()
	gateway.matches = []model.UserDoc{{Id: "user-1", Name: "Old Name", Status: model.UserStatusActive}}
	// no root org registered for tenant-a
	shadowRepo := newFakeShadowRepo(unclaimedClaim())

	rl := newReconciler(t, newFakeBatchRepo(), shadowRepo, gateway)
	require.NoError(t, rl.RunPass(context.Background()))

	claim := shadowRepo.get("tenant-a", "EXT-001")
	assert.Equal(t, model.ClaimStatusRejected, claim.ClaimStatus)
	assert.Empty(t, gateway.profileUpdates)
	assert.Empty(t, gateway.memberships)
}

func TestRunPassMissingCustodianOrgIsFatal(t *testing.T) {
	gateway := newFakeGateway()
	gateway.custodianErr = repo.ErrNotFound

	rl := newReconciler(t, newFakeBatchRepo(), newFakeShadowRepo(), gateway)
	err := rl.RunPass(context.Background())
	assert.ErrorIs(t, err, ErrNoCustodianOrg)
}

func TestRunPassTransientSearchErrorLeavesClaimUnclaimed(t *testing.T) {
	gateway := newFakeGateway()
	gateway.matchErr = errors.New("index unavailable")
	shadowRepo := newFakeShadowRepo(unclaimedClaim())
	batchRepo := newFakeBatchRepo()

	rl := newReconciler(t, batchRepo, shadowRepo, gateway)
	require.NoError(t, rl.RunPass(context.Background()))

	claim := shadowRepo.get("tenant-a", "EXT-001")
	assert.Equal(t, model.ClaimStatusUnclaimed, claim.ClaimStatus)
	assert.Zero(t, claim.Attempts)
	assert.True(t, batchRepo.completed)
}

func TestRunPassDrivesBatchLifecycle(t *testing.T) {
	gateway := newFakeGateway()
	batchRepo := newFakeBatchRepo()
	batchRepo.batches["proc-1"] = &model.MigrationBatch{ProcessId: "proc-1", Status: model.BatchStatusNew}

	rl := newReconciler(t, batchRepo, newFakeShadowRepo(), gateway)
	require.NoError(t, rl.RunPass(context.Background()))

	assert.Equal(t, model.BatchStatusCompleted, batchRepo.batches["proc-1"].Status)
}

func TestRunPassListFailureRequeuesBatches(t *testing.T) {
	gateway := newFakeGateway()
	batchRepo := newFakeBatchRepo()
	shadowRepo := newFakeShadowRepo()
	shadowRepo.listErr = errors.New("store unavailable")

	rl := newReconciler(t, batchRepo, shadowRepo, gateway)
	err := rl.RunPass(context.Background())
	require.Error(t, err)
	assert.True(t, batchRepo.requeued)
}

func TestRunPassIdempotentOverTerminalClaims(t *testing.T) {
	gateway := newFakeGateway()
	gateway.rootOrgs["tenant-a"] = "root-a"
	gateway.matches = []model.UserDoc{{Id: "user-1", Name: "Old Name", Status: model.UserStatusInactive}}
	shadowRepo := newFakeShadowRepo(unclaimedClaim())

	rl := newReconciler(t, newFakeBatchRepo(), shadowRepo, gateway)
	require.NoError(t, rl.RunPass(context.Background()))
	require.Equal(t, model.ClaimStatusClaimed, shadowRepo.get("tenant-a", "EXT-001").ClaimStatus)

	// second pass sees no unclaimed work and touches nothing
	gateway.profileUpdates = map[string]model.UserProfileUpdate{}
	gateway.reindexed = nil
	require.NoError(t, rl.RunPass(context.Background()))
	assert.Empty(t, gateway.profileUpdates)
	assert.Empty(t, gateway.reindexed)
}
