package logic

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/rosterbridge/rosterbridge/internal/engine/conf"
	"github.com/rosterbridge/rosterbridge/internal/engine/model"
	"github.com/rosterbridge/rosterbridge/internal/engine/repo"
	"github.com/rosterbridge/rosterbridge/pkg/id"
	"github.com/rosterbridge/rosterbridge/pkg/log"
	"github.com/rosterbridge/rosterbridge/pkg/metrics"
)

// Upload validation errors.
var (
	ErrEmptyPayload     = errors.New("uploaded table contains no data rows")
	ErrMalformedPayload = errors.New("uploaded table could not be parsed")
)

// columnField is the fixed column vocabulary. Header names are mapped to
// fields through this enum, never through reflection.
type columnField int

const (
	colUnknown columnField = iota
	colEmail
	colPhone
	colName
	colUserExternalId
	colOrgExternalId
	colInputStatus
)

// canonicalName is the field name used in the mandatory-columns config.
func (f columnField) canonicalName() string {
	switch f {
	case colEmail:
		return "email"
	case colPhone:
		return "phone"
	case colName:
		return "name"
	case colUserExternalId:
		return "userExternalId"
	case colOrgExternalId:
		return "orgExternalId"
	case colInputStatus:
		return "inputStatus"
	default:
		return ""
	}
}

// mapColumn maps a lower-cased header name to its canonical field.
// Unrecognized headers are dropped, not errored.
func mapColumn(header string) columnField {
	switch header {
	case "email":
		return colEmail
	case "phone":
		return colPhone
	case "name":
		return colName
	case "externaluserid":
		return colUserExternalId
	case "externalorgid":
		return colOrgExternalId
	case "status":
		return colInputStatus
	default:
		return colUnknown
	}
}

func assignField(row *model.MigrationRow, f columnField, value string) {
	switch f {
	case colEmail:
		row.Email = value
	case colPhone:
		row.Phone = value
	case colName:
		row.Name = value
	case colUserExternalId:
		row.UserExternalId = value
	case colOrgExternalId:
		row.OrgExternalId = value
	case colInputStatus:
		row.InputStatus = value
	}
}

type UploadLogic struct {
	cfg       conf.Migration
	gateway   repo.IDirectoryGateway
	batchRepo repo.IBatchRepository
}

func NewUploadLogic(cfg conf.Migration, gateway repo.IDirectoryGateway, batchRepo repo.IBatchRepository) *UploadLogic {
	return &UploadLogic{
		cfg:       cfg,
		gateway:   gateway,
		batchRepo: batchRepo,
	}
}

// Upload runs the whole ingestion flow for one spreadsheet: resolve the
// uploading admin (their tenant stamps every row), parse, stage. Returns
// the generated process id of the staged batch.
func (ul *UploadLogic) Upload(ctx context.Context, payload []byte, createdBy string) (string, error) {
	uploader, err := ul.gateway.GetUserByID(ctx, createdBy)
	if err != nil {
		return "", err
	}

	start := time.Now()
	rows, err := ul.ParseTable(payload, uploader.Channel)
	if err != nil {
		return "", err
	}
	log.Infow("migration table parsed",
		"rows", len(rows),
		"channel", uploader.Channel,
		"tookMs", time.Since(start).Milliseconds(),
	)

	return ul.Stage(ctx, rows, createdBy, uploader.RootOrgId)
}

// ParseTable turns raw table bytes into ordered MigrationRows. Every row is
// stamped with the caller's channel; rows missing mandatory fields are
// flagged and retained, not dropped.
func (ul *UploadLogic) ParseTable(payload []byte, channel string) ([]model.MigrationRow, error) {
	reader := csv.NewReader(bytes.NewReader(payload))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(records) < 2 {
		return nil, ErrEmptyPayload
	}

	supported := make(map[string]bool, len(ul.cfg.SupportedColumns))
	for _, col := range ul.cfg.SupportedColumns {
		supported[strings.ToLower(col)] = true
	}

	headers := records[0]
	fields := make([]columnField, len(headers))
	for i, header := range headers {
		lowered := strings.ToLower(strings.TrimSpace(header))
		if !supported[lowered] {
			continue
		}
		fields[i] = mapColumn(lowered)
	}

	mandatory := make([]columnField, 0, len(ul.cfg.MandatoryColumns))
	for _, name := range ul.cfg.MandatoryColumns {
		for _, f := range []columnField{colEmail, colPhone, colName, colUserExternalId, colOrgExternalId, colInputStatus} {
			if strings.EqualFold(f.canonicalName(), name) {
				mandatory = append(mandatory, f)
			}
		}
	}

	rows := make([]model.MigrationRow, 0, len(records)-1)
	for _, record := range records[1:] {
		row := model.MigrationRow{Channel: channel}
		for i, cell := range record {
			if i >= len(fields) {
				break
			}
			assignField(&row, fields[i], cell)
		}
		for _, f := range mandatory {
			if fieldValue(&row, f) == "" {
				row.MissingFields = append(row.MissingFields, f.canonicalName())
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func fieldValue(row *model.MigrationRow, f columnField) string {
	switch f {
	case colEmail:
		return row.Email
	case colPhone:
		return row.Phone
	case colName:
		return row.Name
	case colUserExternalId:
		return row.UserExternalId
	case colOrgExternalId:
		return row.OrgExternalId
	case colInputStatus:
		return row.InputStatus
	default:
		return ""
	}
}

// Stage serializes the rows and persists the batch record together with one
// UNCLAIMED claim per keyable row. Staging does not trigger reconciliation;
// a scheduled pass picks the batch up later.
func (ul *UploadLogic) Stage(ctx context.Context, rows []model.MigrationRow, createdBy, rootOrgId string) (string, error) {
	serialized, err := sonic.MarshalString(rows)
	if err != nil {
		return "", fmt.Errorf("failed to serialize migration rows: %w", err)
	}

	processId := id.GetULID()
	now := time.Now()
	batch := &model.MigrationBatch{
		ProcessId:      processId,
		SerializedRows: serialized,
		Status:         model.BatchStatusNew,
		RetryBudget:    ul.cfg.RetryBudget,
		RowCount:       len(rows),
		CreatedBy:      createdBy,
		OrganisationId: rootOrgId,
		CreatedOn:      now,
		LastUpdatedOn:  now,
	}

	claims := make([]model.ShadowUser, 0, len(rows))
	for _, row := range rows {
		if row.UserExternalId == "" {
			// a claim is keyed by (channel, userExternalId); without the
			// external id there is nothing to reconcile against
			log.Warnw("skipping row without user external id",
				"processId", processId,
				"email", row.Email,
			)
			continue
		}
		claims = append(claims, model.ShadowUser{
			Channel:     row.Channel,
			UserExtId:   row.UserExternalId,
			Email:       row.Email,
			Phone:       row.Phone,
			Name:        row.Name,
			OrgExtId:    row.OrgExternalId,
			UserStatus:  parseInputStatus(row.InputStatus),
			ClaimStatus: model.ClaimStatusUnclaimed,
			ProcessId:   processId,
			AddedBy:     createdBy,
			CreatedOn:   now,
		})
	}

	if err := ul.batchRepo.InsertBatch(ctx, batch, claims); err != nil {
		return "", err
	}

	metrics.BatchesStagedTotal.Inc()
	metrics.RowsStagedTotal.Add(float64(len(claims)))
	log.Infow("migration batch staged",
		"processId", processId,
		"rows", len(rows),
		"claims", len(claims),
		"createdBy", createdBy,
	)
	return processId, nil
}

// GetBatch exposes the staging record for status lookups.
func (ul *UploadLogic) GetBatch(ctx context.Context, processId string) (*model.MigrationBatch, error) {
	return ul.batchRepo.GetBatch(ctx, processId)
}

// parseInputStatus maps the free-form status column to the target
// activation flag. Anything not explicitly inactive activates.
func parseInputStatus(s string) int {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inactive", "0", "false":
		return model.UserStatusInactive
	default:
		return model.UserStatusActive
	}
}
