package cube

import "encoding/json"

type metaMember struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	ShortTitle  string `json:"shortTitle"`
	Description string `json:"description"`
	Type        string `json:"type"`
	AggType     string `json:"aggType"`
	IsVisible   *bool  `json:"isVisible"`
	Public      *bool  `json:"public"`
}

type metaCube struct {
	Name        string       `json:"name"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Type        string       `json:"type"`
	IsVisible   *bool        `json:"isVisible"`
	Public      *bool        `json:"public"`
	Measures    []metaMember `json:"measures"`
	Dimensions  []metaMember `json:"dimensions"`
}

type metaResponse struct {
	Cubes []metaCube `json:"cubes"`
}

type timeDimension struct {
	Dimension   string `json:"dimension"`
	Granularity string `json:"granularity,omitempty"`
}

// filter is either a member filter or an and/or group
type filter struct {
	Member   string   `json:"member,omitempty"`
	Operator string   `json:"operator,omitempty"`
	Values   []string `json:"values,omitempty"`
	And      []filter `json:"and,omitempty"`
	Or       []filter `json:"or,omitempty"`
}

type query struct {
	Measures       []string        `json:"measures"`
	Dimensions     []string        `json:"dimensions"`
	TimeDimensions []timeDimension `json:"timeDimensions"`
	Filters        []filter        `json:"filters,omitempty"`
	Order          [][2]string     `json:"order,omitempty"`
	Limit          int             `json:"limit,omitempty"`
	Timezone       string          `json:"timezone,omitempty"`
}

type queryRequest struct {
	Query query `json:"query"`
}

type loadResponse struct {
	Error string           `json:"error"`
	Data  []map[string]any `json:"data"`
}

type sqlResponse struct {
	Error string `json:"error"`
	SQL   struct {
		SQL []json.RawMessage `json:"sql"`
	} `json:"sql"`
}
