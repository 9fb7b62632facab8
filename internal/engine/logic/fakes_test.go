package logic

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rosterbridge/rosterbridge/internal/engine/model"
	"github.com/rosterbridge/rosterbridge/internal/engine/repo"
)

type fakeBatchRepo struct {
	mu       sync.Mutex
	batches  map[string]*model.MigrationBatch
	inserted []model.ShadowUser

	insertErr error
	claimErr  error

	completed bool
	requeued  bool
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{batches: make(map[string]*model.MigrationBatch)}
}

func (f *fakeBatchRepo) InsertBatch(_ context.Context, batch *model.MigrationBatch, claims []model.ShadowUser) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches[batch.ProcessId] = batch
	f.inserted = append(f.inserted, claims...)
	return nil
}

func (f *fakeBatchRepo) ClaimNewBatches(context.Context) ([]model.MigrationBatch, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var claimed []model.MigrationBatch
	for _, b := range f.batches {
		if b.Status == model.BatchStatusNew {
			b.Status = model.BatchStatusInProgress
			claimed = append(claimed, *b)
		}
	}
	return claimed, nil
}

func (f *fakeBatchRepo) CompleteInProgress(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = true
	for _, b := range f.batches {
		if b.Status == model.BatchStatusInProgress {
			b.Status = model.BatchStatusCompleted
		}
	}
	return nil
}

func (f *fakeBatchRepo) RequeueInProgress(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requeued = true
	return nil
}

func (f *fakeBatchRepo) GetBatch(_ context.Context, processId string) (*model.MigrationBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.batches[processId]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return b, nil
}

type fakeShadowRepo struct {
	mu      sync.Mutex
	claims  map[string]*model.ShadowUser
	listErr error
}

func newFakeShadowRepo(claims ...model.ShadowUser) *fakeShadowRepo {
	f := &fakeShadowRepo{claims: make(map[string]*model.ShadowUser)}
	for i := range claims {
		c := claims[i]
		f.claims[claimKey(c.Channel, c.UserExtId)] = &c
	}
	return f
}

func claimKey(channel, userExtId string) string {
	return channel + "|" + userExtId
}

func (f *fakeShadowRepo) get(channel, userExtId string) *model.ShadowUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.claims[claimKey(channel, userExtId)]
}

func (f *fakeShadowRepo) ListUnclaimed(context.Context) ([]model.ShadowUser, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ShadowUser
	for _, c := range f.claims {
		if c.ClaimStatus == model.ClaimStatusUnclaimed {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeShadowRepo) UpdateClaimStatus(_ context.Context, channel, userExtId string, status int, claimedOn time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.claims[claimKey(channel, userExtId)]
	if !ok || c.ClaimStatus != model.ClaimStatusUnclaimed {
		return nil
	}
	c.ClaimStatus = status
	c.ClaimedOn = &claimedOn
	return nil
}

func (f *fakeShadowRepo) BumpAttempts(_ context.Context, channel, userExtId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.claims[claimKey(channel, userExtId)]; ok && c.ClaimStatus == model.ClaimStatusUnclaimed {
		c.Attempts++
	}
	return nil
}

type fakeGateway struct {
	mu sync.Mutex

	users          map[string]*model.User
	custodianOrgId string
	custodianErr   error

	matches  []model.UserDoc
	matchErr error

	rootOrgs  map[string]string
	orgsByExt map[string]string

	profileUpdates map[string]model.UserProfileUpdate
	memberships    map[string][]string
	reindexed      []string
	identities     map[string]string

	profileErr  error
	identityErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		users:          make(map[string]*model.User),
		custodianOrgId: "custodian-org",
		rootOrgs:       make(map[string]string),
		orgsByExt:      make(map[string]string),
		profileUpdates: make(map[string]model.UserProfileUpdate),
		memberships:    make(map[string][]string),
		identities:     make(map[string]string),
	}
}

func (f *fakeGateway) GetUserByID(_ context.Context, userId string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userId]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return u, nil
}

func (f *fakeGateway) CustodianOrgID(context.Context) (string, error) {
	if f.custodianErr != nil {
		return "", f.custodianErr
	}
	return f.custodianOrgId, nil
}

func (f *fakeGateway) FindUserByContact(_ context.Context, encEmail, encPhone, _ string) ([]model.UserDoc, error) {
	if f.matchErr != nil {
		return nil, f.matchErr
	}
	if encEmail == "" && encPhone == "" {
		return nil, nil
	}
	return f.matches, nil
}

func (f *fakeGateway) FindRootOrgIDByChannel(_ context.Context, channel string) (string, error) {
	return f.rootOrgs[channel], nil
}

func (f *fakeGateway) FindOrgIDByExternalID(_ context.Context, externalId, channel string) (string, error) {
	return f.orgsByExt[externalId+"|"+channel], nil
}

func (f *fakeGateway) UpdateUserProfile(_ context.Context, userId string, update model.UserProfileUpdate) error {
	if f.profileErr != nil {
		return f.profileErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileUpdates[userId] = update
	return nil
}

func (f *fakeGateway) ReplaceMembership(_ context.Context, userId string, orgIds []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberships[userId] = orgIds
	return nil
}

func (f *fakeGateway) ReindexUser(_ context.Context, userId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reindexed = append(f.reindexed, userId)
	return nil
}

func (f *fakeGateway) UpsertExternalIdentity(_ context.Context, channel, userExtId, userId, _ string) error {
	if f.identityErr != nil {
		return f.identityErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identities[strings.ToLower(channel)+"|"+strings.ToLower(userExtId)] = userId
	return nil
}
