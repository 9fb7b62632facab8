package model

// Documents stored in the search index (MongoDB). They are denormalized,
// eventually-consistent projections of the primary store; the primary copy
// always wins and documents are rebuilt whole by ReindexUser.

// UserDoc is the indexed projection of a directory user plus memberships.
type UserDoc struct {
	Id            string       `bson:"id" json:"id"`
	Name          string       `bson:"firstName" json:"firstName"`
	Email         string       `bson:"email" json:"email"`
	Phone         string       `bson:"phone" json:"phone"`
	Status        int          `bson:"status" json:"status"`
	Channel       string       `bson:"channel" json:"channel"`
	RootOrgId     string       `bson:"rootOrgId" json:"rootOrgId"`
	IsDeleted     bool         `bson:"isDeleted" json:"isDeleted"`
	Organisations []UserOrgDoc `bson:"organisations" json:"organisations"`
}

// UserOrgDoc is one membership edge inside a UserDoc.
type UserOrgDoc struct {
	Id             string `bson:"id" json:"id"`
	OrganisationId string `bson:"organisationId" json:"organisationId"`
}

// OrgDoc is the indexed projection of an organisation.
type OrgDoc struct {
	Id         string `bson:"id" json:"id"`
	Channel    string `bson:"channel" json:"channel"`
	ExternalId string `bson:"externalId" json:"externalId"`
	IsRootOrg  bool   `bson:"isRootOrg" json:"isRootOrg"`
}

// OrganisationIds flattens the membership edges of a user document.
func (d UserDoc) OrganisationIds() []string {
	ids := make([]string, 0, len(d.Organisations))
	for _, org := range d.Organisations {
		ids = append(ids, org.OrganisationId)
	}
	return ids
}
