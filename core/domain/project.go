package domain

// DbtCloudConnection holds the dbt Cloud Semantic Layer credentials
type DbtCloudConnection struct {
	BearerToken   string `json:"bearerToken,omitempty" yaml:"bearer_token" bson:"bearer_token"`
	EnvironmentID string `json:"environmentId,omitempty" yaml:"environment_id" bson:"environment_id"`
	Domain        string `json:"domain,omitempty" yaml:"domain" bson:"domain"`
}

// Configured reports whether both the token and the environment are set
func (c DbtCloudConnection) Configured() bool {
	return c.BearerToken != "" && c.EnvironmentID != ""
}

// CubeConnection holds the Cube REST API credentials. APISecret, when set,
// is used to sign short-lived tokens instead of sending Token as-is.
type CubeConnection struct {
	Token     string `json:"token,omitempty" yaml:"token" bson:"token"`
	APISecret string `json:"apiSecret,omitempty" yaml:"api_secret" bson:"api_secret"`
	Domain    string `json:"domain,omitempty" yaml:"domain" bson:"domain"`
}

// Configured reports whether a credential and the domain are set
func (c CubeConnection) Configured() bool {
	return (c.Token != "" || c.APISecret != "") && c.Domain != ""
}

// SemanticLayerConnection groups the per-project connection settings
type SemanticLayerConnection struct {
	DbtCloud DbtCloudConnection `json:"dbtCloud" yaml:"dbt_cloud" bson:"dbt_cloud"`
	Cube     CubeConnection     `json:"cube" yaml:"cube" bson:"cube"`
}

// IsZero reports whether the project configures no semantic layer at all
func (c SemanticLayerConnection) IsZero() bool {
	return c == (SemanticLayerConnection{})
}

// WithDefaults returns defaults when c is empty and c otherwise. A project
// that configures any connection uses only its own settings, so a partial
// or Cube-only project never falls back to the global dbt Cloud credentials.
func (c SemanticLayerConnection) WithDefaults(defaults SemanticLayerConnection) SemanticLayerConnection {
	if c.IsZero() {
		return defaults
	}
	return c
}

// Project is the owner of a semantic layer connection
type Project struct {
	UUID             string                  `json:"projectUuid" yaml:"uuid" bson:"project_uuid"`
	OrganizationUUID string                  `json:"organizationUuid" yaml:"organization_uuid" bson:"organization_uuid"`
	Name             string                  `json:"name" yaml:"name" bson:"name"`
	SemanticLayer    SemanticLayerConnection `json:"semanticLayerConnection" yaml:"semantic_layer" bson:"semantic_layer"`
}

// ProjectSummary is the subset needed by authorization checks
type ProjectSummary struct {
	UUID             string `json:"projectUuid"`
	OrganizationUUID string `json:"organizationUuid"`
	Name             string `json:"name"`
}

// Summary returns the project summary
func (p *Project) Summary() ProjectSummary {
	return ProjectSummary{UUID: p.UUID, OrganizationUUID: p.OrganizationUUID, Name: p.Name}
}
