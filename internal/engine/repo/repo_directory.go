package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rosterbridge/rosterbridge/internal/engine/consts"
	"github.com/rosterbridge/rosterbridge/internal/engine/model"
	"github.com/rosterbridge/rosterbridge/pkg/cache"
	"github.com/rosterbridge/rosterbridge/pkg/database"
	"github.com/rosterbridge/rosterbridge/pkg/id"
	"github.com/rosterbridge/rosterbridge/pkg/log"
)

// IDirectoryGateway is the surface the reconciler and the upload flow see of
// the two directory stores. Reads against the search index may lag the
// primary store; an empty result means "not found or not yet indexed" and
// the two cases are deliberately indistinguishable.
type IDirectoryGateway interface {
	GetUserByID(ctx context.Context, userId string) (*model.User, error)
	CustodianOrgID(ctx context.Context) (string, error)
	FindUserByContact(ctx context.Context, encEmail, encPhone, rootOrgId string) ([]model.UserDoc, error)
	FindRootOrgIDByChannel(ctx context.Context, channel string) (string, error)
	FindOrgIDByExternalID(ctx context.Context, externalId, channel string) (string, error)
	UpdateUserProfile(ctx context.Context, userId string, update model.UserProfileUpdate) error
	ReplaceMembership(ctx context.Context, userId string, orgIds []string) error
	ReindexUser(ctx context.Context, userId string) error
	UpsertExternalIdentity(ctx context.Context, channel, userExtId, userId, addedBy string) error
}

type DirectoryRepo struct {
	db    *gorm.DB
	index *database.MongoClient
	cache cache.ICache
}

func NewDirectoryRepo(db *gorm.DB, index *database.MongoClient, cache cache.ICache) IDirectoryGateway {
	return &DirectoryRepo{
		db:    db,
		index: index,
		cache: cache,
	}
}

// GetUserByID fetches a directory user from the primary store, with a
// redis read-through so repeated uploads by the same admin stay cheap.
func (dr *DirectoryRepo) GetUserByID(ctx context.Context, userId string) (*model.User, error) {
	key := consts.UploaderInfoKey + userId
	u := &model.User{}

	if dr.cache != nil {
		userStr, err := dr.cache.Get(ctx, key).Result()
		if err == nil && userStr != "" {
			if err := sonic.UnmarshalString(userStr, u); err != nil {
				log.Errorw("failed to unmarshal cached user", "userId", userId, "error", err)
			} else {
				return u, nil
			}
		}
	}

	err := dr.db.WithContext(ctx).
		Where("user_id = ?", userId).
		First(u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("get user by id", err)
	}

	if dr.cache != nil {
		userJson, err := sonic.MarshalString(u)
		if err != nil {
			log.Errorw("failed to marshal user", "userId", userId, "error", err)
		} else if err := dr.cache.Set(ctx, key, userJson, time.Hour).Err(); err != nil {
			log.Errorw("failed to cache user", "userId", userId, "error", err)
		}
	}

	return u, nil
}

// CustodianOrgID resolves the custodian organisation every directory match
// is scoped to. Missing or blank is ErrNotFound; the reconciler treats that
// as a fatal configuration error for the whole pass.
func (dr *DirectoryRepo) CustodianOrgID(ctx context.Context) (string, error) {
	if dr.cache != nil {
		v, err := dr.cache.Get(ctx, consts.CustodianOrgKey).Result()
		if err == nil && v != "" {
			return v, nil
		}
	}

	var setting model.SystemSetting
	err := dr.db.WithContext(ctx).
		Where("field = ?", consts.SettingCustodianOrgID).
		First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", storeErr("get custodian org id", err)
	}
	if setting.Value == "" {
		return "", ErrNotFound
	}

	if dr.cache != nil {
		if err := dr.cache.Set(ctx, consts.CustodianOrgKey, setting.Value, time.Hour).Err(); err != nil {
			log.Errorw("failed to cache custodian org id", "error", err)
		}
	}

	return setting.Value, nil
}

// FindUserByContact searches the index for users whose encrypted email OR
// phone equals the given values, scoped to the custodian root organisation.
// Blank contact values are dropped from the OR-group; with both blank the
// search is skipped entirely.
func (dr *DirectoryRepo) FindUserByContact(ctx context.Context, encEmail, encPhone, rootOrgId string) ([]model.UserDoc, error) {
	orGroup := make([]bson.M, 0, 2)
	if encEmail != "" {
		orGroup = append(orGroup, bson.M{"email": encEmail})
	}
	if encPhone != "" {
		orGroup = append(orGroup, bson.M{"phone": encPhone})
	}
	if len(orGroup) == 0 {
		return nil, nil
	}

	filter := bson.M{
		"rootOrgId": rootOrgId,
		"$or":       orGroup,
	}
	cur, err := dr.index.GetCollection(consts.IndexUser).Find(ctx, filter)
	if err != nil {
		return nil, storeErr("search user by contact", err)
	}
	defer cur.Close(ctx)

	var docs []model.UserDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storeErr("decode user search result", err)
	}
	return docs, nil
}

// FindRootOrgIDByChannel resolves a tenant channel to its root organisation
// id. An unrecognized channel returns empty, not an error.
func (dr *DirectoryRepo) FindRootOrgIDByChannel(ctx context.Context, channel string) (string, error) {
	filter := bson.M{
		"channel":   channel,
		"isRootOrg": true,
	}
	return dr.findOrgID(ctx, filter, "search root org by channel")
}

// FindOrgIDByExternalID resolves (externalId, channel) to an organisation id.
func (dr *DirectoryRepo) FindOrgIDByExternalID(ctx context.Context, externalId, channel string) (string, error) {
	filter := bson.M{
		"externalId": externalId,
		"channel":    channel,
	}
	return dr.findOrgID(ctx, filter, "search org by external id")
}

func (dr *DirectoryRepo) findOrgID(ctx context.Context, filter bson.M, op string) (string, error) {
	var doc model.OrgDoc
	err := dr.index.GetCollection(consts.IndexOrganisation).FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		return "", storeErr(op, err)
	}
	return doc.Id, nil
}

// UpdateUserProfile overwrites the claim-controlled profile fields of one
// directory user in the primary store.
func (dr *DirectoryRepo) UpdateUserProfile(ctx context.Context, userId string, update model.UserProfileUpdate) error {
	result := dr.db.WithContext(ctx).Model(&model.User{}).
		Where("user_id = ?", userId).
		Updates(map[string]any{
			"name":        update.Name,
			"status":      update.Status,
			"is_deleted":  update.IsDeleted,
			"user_type":   update.UserType,
			"channel":     update.Channel,
			"root_org_id": update.RootOrgId,
			"updated_by":  update.UpdatedBy,
			"updated_on":  time.Now(),
		})
	if result.Error != nil {
		return storeErr("update user profile", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceMembership swaps a user's whole membership set for the given
// organisations: delete everything, then re-register. Runs in one primary
// store transaction so a crash cannot leave the user half-membered.
func (dr *DirectoryRepo) ReplaceMembership(ctx context.Context, userId string, orgIds []string) error {
	err := dr.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var orgs []model.Organisation
		if len(orgIds) > 0 {
			if err := tx.Where("org_id IN ?", orgIds).Find(&orgs).Error; err != nil {
				return err
			}
		}
		hashTags := make(map[string]string, len(orgs))
		for _, org := range orgs {
			hashTags[org.OrgId] = org.HashTagId
		}

		if err := tx.Where("user_id = ?", userId).Delete(&model.UserOrg{}).Error; err != nil {
			return err
		}

		roles, err := sonic.MarshalString([]string{consts.RolePublic})
		if err != nil {
			return err
		}
		now := time.Now()
		for _, orgId := range orgIds {
			hashTag := hashTags[orgId]
			if hashTag == "" {
				hashTag = orgId
			}
			edge := model.UserOrg{
				Id:          id.GetUUIDWithoutDashes(),
				UserId:      userId,
				OrgId:       orgId,
				Roles:       roles,
				HashTagId:   hashTag,
				OrgJoinDate: now,
				IsDeleted:   false,
			}
			if err := tx.Create(&edge).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeErr("replace membership", err)
	}
	return nil
}

// ReindexUser rebuilds the user's search index document from the primary
// store. Always write-primary-then-reproject; never the reverse.
func (dr *DirectoryRepo) ReindexUser(ctx context.Context, userId string) error {
	var u model.User
	err := dr.db.WithContext(ctx).
		Where("user_id = ?", userId).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return storeErr("read user for reindex", err)
	}

	var edges []model.UserOrg
	err = dr.db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = ?", userId, false).
		Find(&edges).Error
	if err != nil {
		return storeErr("read memberships for reindex", err)
	}

	doc := model.UserDoc{
		Id:            u.UserId,
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		Status:        u.Status,
		Channel:       u.Channel,
		RootOrgId:     u.RootOrgId,
		IsDeleted:     u.IsDeleted,
		Organisations: make([]model.UserOrgDoc, 0, len(edges)),
	}
	for _, edge := range edges {
		doc.Organisations = append(doc.Organisations, model.UserOrgDoc{
			Id:             edge.Id,
			OrganisationId: edge.OrgId,
		})
	}

	_, err = dr.index.GetCollection(consts.IndexUser).ReplaceOne(ctx,
		bson.M{"id": userId}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return storeErr("reindex user", err)
	}
	return nil
}

// UpsertExternalIdentity records the (channel, external id) → user link.
// The composite key is lower-cased; the original casing is kept alongside
// for display. The write is an upsert so a retried claim cannot create a
// duplicate mapping.
func (dr *DirectoryRepo) UpsertExternalIdentity(ctx context.Context, channel, userExtId, userId, addedBy string) error {
	provider := strings.ToLower(channel)
	mapping := model.UserExternalIdentity{
		Provider:           provider,
		IdType:             provider,
		ExternalId:         strings.ToLower(userExtId),
		UserId:             userId,
		OriginalProvider:   channel,
		OriginalIdType:     channel,
		OriginalExternalId: userExtId,
		CreatedBy:          addedBy,
		CreatedOn:          time.Now(),
	}
	err := dr.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&mapping).Error
	if err != nil {
		return storeErr("upsert external identity", err)
	}
	return nil
}
