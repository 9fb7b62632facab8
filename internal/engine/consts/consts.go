package consts

// Redis key prefixes.
const (
	UploaderInfoKey = "rosterbridge:uploader:"
	CustodianOrgKey = "rosterbridge:custodian_org_id"
)

// System setting fields.
const (
	SettingCustodianOrgID = "custodianOrgId"
)

// Search index collections.
const (
	IndexUser         = "user"
	IndexOrganisation = "organisation"
)

// Membership role granted to reconciled users.
const (
	RolePublic = "PUBLIC"
)
