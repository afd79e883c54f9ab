// Package offices compiles election-office records from the companion civic
// APIs into the fixed office schema.
package offices

import (
	"context"
	"strings"

	"github.com/sells-group/office-scraper/internal/model"
	"github.com/sells-group/office-scraper/pkg/civicapi"
	"github.com/sells-group/office-scraper/pkg/civicinfo"
	"github.com/sells-group/office-scraper/pkg/voteamerica"
)

// Source names, also written to the source column.
const (
	SourceVoteAmerica = "VoteAmerica"
	SourceCivicAPI    = "CivicAPI"
	SourceGoogleCivic = "GoogleCivic"
)

// Source is one upstream API. A disabled source has no credential and is
// never called.
type Source interface {
	Name() string
	Enabled() bool
	Fetch(ctx context.Context, state string) ([]model.OfficeRecord, error)
}

// VoteAmericaSource adapts the VoteAmerica client. A nil client disables it.
type VoteAmericaSource struct {
	Client voteamerica.Client
}

func (s VoteAmericaSource) Name() string  { return SourceVoteAmerica }
func (s VoteAmericaSource) Enabled() bool { return s.Client != nil }

func (s VoteAmericaSource) Fetch(ctx context.Context, state string) ([]model.OfficeRecord, error) {
	offices, err := s.Client.ElectionOffices(ctx, state)
	if err != nil {
		return nil, err
	}
	out := make([]model.OfficeRecord, 0, len(offices))
	for _, o := range offices {
		out = append(out, normalize(model.OfficeRecord{
			State:        state,
			County:       o.County,
			PrecinctName: o.Name,
			Address:      o.Address,
			OfficialName: o.Official,
			Role:         o.Role,
			Email:        o.Email,
			Website:      o.Website,
			Source:       SourceVoteAmerica,
		}))
	}
	return out, nil
}

// CivicAPISource adapts the CivicAPI client. A nil client disables it.
type CivicAPISource struct {
	Client civicapi.Client
}

func (s CivicAPISource) Name() string  { return SourceCivicAPI }
func (s CivicAPISource) Enabled() bool { return s.Client != nil }

func (s CivicAPISource) Fetch(ctx context.Context, state string) ([]model.OfficeRecord, error) {
	results, err := s.Client.Officials(ctx, state)
	if err != nil {
		return nil, err
	}
	out := make([]model.OfficeRecord, 0, len(results))
	for _, r := range results {
		out = append(out, normalize(model.OfficeRecord{
			State:        state,
			County:       r.County,
			PrecinctName: r.Office,
			Address:      r.Address,
			OfficialName: r.Name,
			Role:         r.Role,
			Email:        r.Email,
			Website:      r.Website,
			Source:       SourceCivicAPI,
		}))
	}
	return out, nil
}

// GoogleCivicSource adapts the Civic Information client, querying with the
// state as the address. Each office yields one record per official holding it.
type GoogleCivicSource struct {
	Client civicinfo.Client
}

func (s GoogleCivicSource) Name() string  { return SourceGoogleCivic }
func (s GoogleCivicSource) Enabled() bool { return s.Client != nil }

func (s GoogleCivicSource) Fetch(ctx context.Context, state string) ([]model.OfficeRecord, error) {
	resp, err := s.Client.Representatives(ctx, state)
	if err != nil {
		return nil, err
	}
	return flattenRepresentatives(state, resp), nil
}

func flattenRepresentatives(state string, resp *civicinfo.RepresentativesResponse) []model.OfficeRecord {
	if resp == nil {
		return nil
	}
	var out []model.OfficeRecord
	for _, office := range resp.Offices {
		county := ""
		if strings.Contains(office.DivisionID, "/county:") {
			county = resp.Divisions[office.DivisionID].Name
		}
		for _, idx := range office.OfficialIndices {
			if idx < 0 || idx >= len(resp.Officials) {
				continue
			}
			official := resp.Officials[idx]
			rec := model.OfficeRecord{
				State:        state,
				County:       county,
				PrecinctName: office.Name,
				OfficialName: official.Name,
				Role:         strings.Join(office.Roles, ", "),
				Source:       SourceGoogleCivic,
			}
			if len(official.Address) > 0 {
				rec.Address = official.Address[0].String()
			}
			if len(official.Emails) > 0 {
				rec.Email = official.Emails[0]
			}
			if len(official.URLs) > 0 {
				rec.Website = official.URLs[0]
			}
			out = append(out, normalize(rec))
		}
	}
	return out
}

func normalize(r model.OfficeRecord) model.OfficeRecord {
	r.State = strings.ToUpper(strings.TrimSpace(r.State))
	r.County = strings.TrimSpace(r.County)
	r.PrecinctName = strings.TrimSpace(r.PrecinctName)
	r.Address = strings.TrimSpace(r.Address)
	r.OfficialName = strings.TrimSpace(r.OfficialName)
	r.Role = strings.TrimSpace(r.Role)
	r.Email = strings.TrimSpace(r.Email)
	r.Website = strings.TrimSpace(r.Website)
	return r
}
