package models

import "time"

// Org identifies the federation a gym record was sourced from.
type Org string

const (
	OrgIBJJF Org = "ibjjf"
	OrgJJWL  Org = "jjwl"
)

// KnownOrgs lists every federation the sync pipeline understands.
var KnownOrgs = []Org{OrgIBJJF, OrgJJWL}

// IsValid reports whether the org is one of the known federations.
func (o Org) IsValid() bool {
	for _, known := range KnownOrgs {
		if o == known {
			return true
		}
	}
	return false
}

// SourceGym is a gym as reported by one federation. Identity is the
// composite (org, external_id); external_id is trusted to be unique
// within its org as supplied by the fetcher.
type SourceGym struct {
	Org         Org       `json:"org" db:"org"`
	ExternalID  string    `json:"external_id" db:"external_id"`
	Name        string    `json:"name" db:"name"`
	City        *string   `json:"city,omitempty" db:"city"`
	State       *string   `json:"state,omitempty" db:"state"`
	Country     *string   `json:"country,omitempty" db:"country"`
	CountryCode *string   `json:"country_code,omitempty" db:"country_code"`
	Address     *string   `json:"address,omitempty" db:"address"`
	Website     *string   `json:"website,omitempty" db:"website"`
	Responsible *string   `json:"responsible,omitempty" db:"responsible"`
	MasterGymID *string   `json:"master_gym_id,omitempty" db:"master_gym_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// SourceRef identifies a source gym without carrying its full record.
type SourceRef struct {
	Org        Org    `json:"org"`
	ExternalID string `json:"external_id"`
}

// Ref returns the gym's identity pair.
func (g *SourceGym) Ref() SourceRef {
	return SourceRef{Org: g.Org, ExternalID: g.ExternalID}
}

// IsLinked reports whether this gym has been resolved to a master gym.
func (g *SourceGym) IsLinked() bool {
	return g.MasterGymID != nil && *g.MasterGymID != ""
}

// CityOrEmpty returns the city or "" when unknown.
func (g *SourceGym) CityOrEmpty() string {
	if g.City == nil {
		return ""
	}
	return *g.City
}

// MasterGym is the canonical, deduplicated gym entity. SearchKey is
// always the lowercase form of CanonicalName; it is derived on every
// write and never accepted from callers.
type MasterGym struct {
	ID            string    `json:"id" db:"id"`
	CanonicalName string    `json:"canonical_name" db:"canonical_name"`
	SearchKey     string    `json:"search_key" db:"search_key"`
	City          *string   `json:"city,omitempty" db:"city"`
	Country       *string   `json:"country,omitempty" db:"country"`
	Address       *string   `json:"address,omitempty" db:"address"`
	Website       *string   `json:"website,omitempty" db:"website"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// CreateMasterGymRequest is the request to create a master gym.
type CreateMasterGymRequest struct {
	CanonicalName string  `json:"canonical_name" validate:"required"`
	City          *string `json:"city,omitempty"`
	Country       *string `json:"country,omitempty"`
	Address       *string `json:"address,omitempty"`
	Website       *string `json:"website,omitempty"`
}

// RenameMasterGymRequest is the request to rename a master gym.
// The search key is re-derived server-side in the same operation.
type RenameMasterGymRequest struct {
	CanonicalName string `json:"canonical_name" validate:"required"`
}
