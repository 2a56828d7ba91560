package model

// Mode selects between a single-company lookup and a batch.
type Mode string

const (
	ModeIndividual Mode = "individual"
	ModeBulk       Mode = "bulk"
)

// DefaultMaxResults applies when the input omits maxResults.
const DefaultMaxResults = 5

// DefaultPhoneTypes returns the phone types requested when the input omits them.
func DefaultPhoneTypes() []string {
	return []string{"main", "support", "sales"}
}

// Input is the raw request document as supplied by the caller. CompanyNames
// carries a JSON-encoded array of names and is only read in bulk mode.
type Input struct {
	CompanyName  string   `json:"companyName,omitempty" yaml:"companyName"`
	Country      string   `json:"country,omitempty" yaml:"country"`
	PhoneTypes   []string `json:"phoneTypes,omitempty" yaml:"phoneTypes"`
	MaxResults   *int     `json:"maxResults,omitempty" yaml:"maxResults"`
	CompanyNames string   `json:"companyNames,omitempty" yaml:"companyNames"`
	Type         string   `json:"type,omitempty" yaml:"type"`
}

// Request is a validated Input with defaults applied.
type Request struct {
	Mode         Mode     `json:"mode"`
	CompanyName  string   `json:"companyName,omitempty"`
	CompanyNames []string `json:"companyNames,omitempty"`
	Country      string   `json:"country,omitempty"`
	PhoneTypes   []string `json:"phoneTypes"`
	MaxResults   int      `json:"maxResults"`
}

// Names returns the companies to look up, in processing order.
func (r Request) Names() []string {
	if r.Mode == ModeBulk {
		return r.CompanyNames
	}
	if r.CompanyName == "" {
		return nil
	}
	return []string{r.CompanyName}
}

// CountryPtr returns the country as a nullable value: nil when unset.
func (r Request) CountryPtr() *string {
	return NullableString(r.Country)
}

// NullableString maps the empty string to nil.
func NullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
