package model

// SystemSetting is a keyed configuration record in the primary store.
// Holds, among others, the custodian organisation id the reconciler
// scopes its directory matches to.
type SystemSetting struct {
	Id    string `gorm:"column:id;primaryKey" json:"id"`
	Field string `gorm:"column:field;index" json:"field"`
	Value string `gorm:"column:value" json:"value"`
}

func (SystemSetting) TableName() string {
	return "t_system_setting"
}
