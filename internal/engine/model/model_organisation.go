package model

import "time"

// Organisation in the primary store. A tenant channel maps to exactly one
// root organisation (is_root_org = true).
type Organisation struct {
	OrgId      string `gorm:"column:org_id;primaryKey" json:"orgId"`
	OrgName    string `gorm:"column:org_name" json:"orgName"`
	Channel    string `gorm:"column:channel;index" json:"channel"`
	ExternalId string `gorm:"column:external_id;index" json:"externalId"`
	IsRootOrg  bool   `gorm:"column:is_root_org" json:"isRootOrg"`
	HashTagId  string `gorm:"column:hash_tag_id" json:"hashTagId"`
	Status     int    `gorm:"column:status" json:"status"`
}

func (Organisation) TableName() string {
	return "t_organisation"
}

// UserOrg is the (user, organisation) membership edge. Reconciliation
// replaces a user's whole membership set rather than diffing it.
type UserOrg struct {
	Id          string    `gorm:"column:id;primaryKey" json:"id"`
	UserId      string    `gorm:"column:user_id;index" json:"userId"`
	OrgId       string    `gorm:"column:org_id" json:"orgId"`
	Roles       string    `gorm:"column:roles" json:"roles"`
	HashTagId   string    `gorm:"column:hash_tag_id" json:"hashTagId"`
	OrgJoinDate time.Time `gorm:"column:org_join_date" json:"orgJoinDate"`
	IsDeleted   bool      `gorm:"column:is_deleted" json:"isDeleted"`
}

func (UserOrg) TableName() string {
	return "t_user_org"
}
