package model

// MigrationRow is one parsed spreadsheet line. Transient: it only exists
// between parsing and staging; the durable form is the ShadowUser claim
// plus the batch's serialized payload.
type MigrationRow struct {
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Name           string `json:"name"`
	UserExternalId string `json:"userExternalId"`
	OrgExternalId  string `json:"orgExternalId"`
	Channel        string `json:"channel"`
	InputStatus    string `json:"inputStatus"`
	// MissingFields lists mandatory columns absent or blank on this row.
	// Flagged rows are retained; rejection happens during reconciliation.
	MissingFields []string `json:"missingFields,omitempty"`
}
