package model

import "time"

// ShadowUser is one staged spreadsheet row waiting to be reconciled against
// the directory, keyed by (channel, user_ext_id). The claim status is
// monotonic: once CLAIMED or REJECTED it is never touched again.
type ShadowUser struct {
	Channel     string     `gorm:"column:channel;primaryKey" json:"channel"`
	UserExtId   string     `gorm:"column:user_ext_id;primaryKey" json:"userExtId"`
	Email       string     `gorm:"column:email" json:"email"`
	Phone       string     `gorm:"column:phone" json:"phone"`
	Name        string     `gorm:"column:name" json:"name"`
	OrgExtId    string     `gorm:"column:org_ext_id" json:"orgExtId"`
	UserStatus  int        `gorm:"column:user_status" json:"userStatus"`
	ClaimStatus int        `gorm:"column:claim_status;index" json:"claimStatus"`
	Attempts    int        `gorm:"column:attempts" json:"attempts"`
	ProcessId   string     `gorm:"column:process_id;index" json:"processId"`
	AddedBy     string     `gorm:"column:added_by" json:"addedBy"`
	ClaimedOn   *time.Time `gorm:"column:claimed_on" json:"claimedOn"`
	CreatedOn   time.Time  `gorm:"column:created_on" json:"createdOn"`
}

func (ShadowUser) TableName() string {
	return "t_shadow_user"
}

// Claim statuses.
const (
	ClaimStatusUnclaimed = 0
	ClaimStatusClaimed   = 1
	ClaimStatusRejected  = 2
)

// Target user activation statuses carried on a claim.
const (
	UserStatusInactive = 0
	UserStatusActive   = 1
)
