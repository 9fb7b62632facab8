package model

import "time"

// User is the authoritative directory user in the primary store.
// Email and phone are stored encrypted with the deterministic contact
// encryptor so the search index can match them by exact string.
type User struct {
	UserId    string    `gorm:"column:user_id;primaryKey" json:"userId"`
	Name      string    `gorm:"column:name" json:"name"`
	Email     string    `gorm:"column:email;index" json:"email"`
	Phone     string    `gorm:"column:phone;index" json:"phone"`
	Status    int       `gorm:"column:status" json:"status"`
	Channel   string    `gorm:"column:channel" json:"channel"`
	RootOrgId string    `gorm:"column:root_org_id;index" json:"rootOrgId"`
	UserType  string    `gorm:"column:user_type" json:"userType"`
	IsDeleted bool      `gorm:"column:is_deleted" json:"isDeleted"`
	UpdatedBy string    `gorm:"column:updated_by" json:"updatedBy"`
	UpdatedOn time.Time `gorm:"column:updated_on" json:"updatedOn"`
}

func (User) TableName() string {
	return "t_user"
}

// UserProfileUpdate carries the directory-user fields a successful claim
// overwrites. Identity fields (user_id, email, phone) are never updated
// through reconciliation.
type UserProfileUpdate struct {
	Name      string
	Status    int
	IsDeleted bool
	UserType  string
	Channel   string
	RootOrgId string
	UpdatedBy string
}

// UserType assigned to users claimed through bulk migration.
const UserTypeTeacher = "TEACHER"
