package model

import "time"

// UserExternalIdentity links an external user id to a directory user,
// keyed by (provider, id_type, external_id). The key columns are
// case-normalized to lower case; the original_* columns retain the
// uploaded casing for display. One mapping per external id per provider,
// written with an upsert so claim retries do not duplicate it.
type UserExternalIdentity struct {
	Provider           string    `gorm:"column:provider;primaryKey" json:"provider"`
	IdType             string    `gorm:"column:id_type;primaryKey" json:"idType"`
	ExternalId         string    `gorm:"column:external_id;primaryKey" json:"externalId"`
	UserId             string    `gorm:"column:user_id;index" json:"userId"`
	OriginalProvider   string    `gorm:"column:original_provider" json:"originalProvider"`
	OriginalIdType     string    `gorm:"column:original_id_type" json:"originalIdType"`
	OriginalExternalId string    `gorm:"column:original_external_id" json:"originalExternalId"`
	CreatedBy          string    `gorm:"column:created_by" json:"createdBy"`
	CreatedOn          time.Time `gorm:"column:created_on" json:"createdOn"`
}

func (UserExternalIdentity) TableName() string {
	return "t_user_external_identity"
}
