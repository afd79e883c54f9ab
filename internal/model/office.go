package model

// OfficeColumns is the fixed column order for API-sourced office records.
var OfficeColumns = []string{
	"state",
	"county",
	"precinct_name",
	"address",
	"official_name",
	"role",
	"email",
	"website",
	"source",
}

// OfficeRecord is one election office or official returned by a civic API.
type OfficeRecord struct {
	State        string `json:"state"`
	County       string `json:"county"`
	PrecinctName string `json:"precinct_name"`
	Address      string `json:"address"`
	OfficialName string `json:"official_name"`
	Role         string `json:"role"`
	Email        string `json:"email"`
	Website      string `json:"website"`
	Source       string `json:"source"`
}

// Row returns the record's cells in OfficeColumns order. Missing values are
// empty strings, never omitted.
func (r OfficeRecord) Row() []string {
	return []string{
		r.State,
		r.County,
		r.PrecinctName,
		r.Address,
		r.OfficialName,
		r.Role,
		r.Email,
		r.Website,
		r.Source,
	}
}
