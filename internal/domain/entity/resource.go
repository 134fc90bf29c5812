package entity

import "github.com/google/uuid"

type ResourceType string

const (
	ResourceOperator     ResourceType = "operator"
	ResourceOrganization ResourceType = "organization"
)

func (t ResourceType) Valid() bool {
	return t == ResourceOperator || t == ResourceOrganization
}

// Contact holds the fields only a fully revealed viewer receives.
type Contact struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
}

// Resource is a provider profile as read from the directory.
type Resource struct {
	ID          uuid.UUID
	Type        ResourceType
	Name        string
	Headline    string
	Location    string
	CategoryIDs []string
	Contact     Contact
}

// RevealedResource is a resource after redaction for a viewer.
type RevealedResource struct {
	ID          uuid.UUID          `json:"id"`
	Type        ResourceType       `json:"type"`
	Headline    string             `json:"headline,omitempty"`
	Location    string             `json:"location,omitempty"`
	CategoryIDs []string           `json:"category_ids"`
	Visibility  VisibilityDecision `json:"visibility"`
	Contact     *Contact           `json:"contact,omitempty"`
}

// SearchQuery is the input of a directory search.
type SearchQuery struct {
	Text        string       `query:"q"`
	Location    string       `query:"location"`
	CategoryIDs []string     `query:"category"`
	Type        ResourceType `query:"type"`
}

// SearchResult is a capped, redacted result page.
type SearchResult struct {
	Results    []RevealedResource `json:"results"`
	TotalCount int                `json:"total_count"`
	Capped     bool               `json:"capped"`
	// ViewerLevel is the viewer's decision for the searched facet.
	ViewerLevel VisibilityLevel `json:"viewer_level"`
}
