package model

import "time"

// MigrationBatch is one persisted bulk-migration job. A batch is created
// once by the upload staging flow and only ever mutated by the reconciler's
// batch driver; rows are never deleted (audit trail).
type MigrationBatch struct {
	ProcessId      string    `gorm:"column:process_id;primaryKey" json:"processId"`
	SerializedRows string    `gorm:"column:serialized_rows;type:longtext" json:"-"`
	Status         int       `gorm:"column:status;index" json:"status"`
	RetryBudget    int       `gorm:"column:retry_budget" json:"retryBudget"`
	RowCount       int       `gorm:"column:row_count" json:"rowCount"`
	CreatedBy      string    `gorm:"column:created_by" json:"createdBy"`
	OrganisationId string    `gorm:"column:organisation_id" json:"organisationId"`
	CreatedOn      time.Time `gorm:"column:created_on" json:"createdOn"`
	LastUpdatedOn  time.Time `gorm:"column:last_updated_on" json:"lastUpdatedOn"`
}

func (MigrationBatch) TableName() string {
	return "t_migration_batch"
}

// MigrationBatch statuses.
const (
	BatchStatusNew        = 0
	BatchStatusInProgress = 1
	BatchStatusCompleted  = 2
	BatchStatusFailed     = 3
)
