package directory

import "context"

// Provider is one bookable provider candidate from the directory.
type Provider struct {
	NPI        string `json:"npi"`
	Name       string `json:"name"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// Match scope notes returned alongside fallback results.
const (
	MatchExact   = ""
	MatchNearby  = "nearby"
	MatchBroader = "broader"
)

// Searcher finds providers near a ZIP code. Implementations degrade to an
// empty list on upstream failure; they never fail the conversation.
type Searcher interface {
	Search(ctx context.Context, department, postalCode string) ([]Provider, string, error)
}

// DepartmentTaxonomy maps clinic departments onto NPI taxonomy
// descriptions used for filtering registry results.
var DepartmentTaxonomy = map[string]string{
	"Dermatology":      "Dermatology",
	"Cardiology":       "Cardiology",
	"General Medicine": "Family Medicine",
	"Pediatrics":       "Pediatrics",
	"Orthopedics":      "Orthopaedic Surgery",
}
