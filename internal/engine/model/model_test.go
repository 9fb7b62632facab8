package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "t_migration_batch", MigrationBatch{}.TableName())
	assert.Equal(t, "t_shadow_user", ShadowUser{}.TableName())
	assert.Equal(t, "t_user", User{}.TableName())
	assert.Equal(t, "t_organisation", Organisation{}.TableName())
	assert.Equal(t, "t_user_org", UserOrg{}.TableName())
	assert.Equal(t, "t_user_external_identity", UserExternalIdentity{}.TableName())
	assert.Equal(t, "t_system_setting", SystemSetting{}.TableName())
}

func TestUserDocOrganisationIds(t *testing.T) {
	doc := UserDoc{
		Organisations: []UserOrgDoc{
			{Id: "edge-1", OrganisationId: "org-1"},
			{Id: "edge-2", OrganisationId: "org-2"},
		},
	}
	assert.Equal(t, []string{"org-1", "org-2"}, doc.OrganisationIds())

	assert.Empty(t, UserDoc{}.OrganisationIds())
}
