package models

import "time"

// PendingMatch statuses. A pending match is resolved exactly once;
// approval links the source gym to a master gym, rejection leaves the
// registry untouched.
const (
	PendingMatchStatusPending  = "pending"
	PendingMatchStatusApproved = "approved"
	PendingMatchStatusRejected = "rejected"
)

// PendingMatch is a proposed source-gym-to-master-gym link awaiting
// human adjudication. The matching engine creates these for scores in
// the pending band; user onboarding creates them with a nil
// CandidateMasterGymID and a free-text SubmittedName instead.
type PendingMatch struct {
	ID                   string     `json:"id" db:"id"`
	Org                  Org        `json:"org" db:"org"`
	SourceExternalID     string     `json:"source_external_id" db:"source_external_id"`
	SourceName           string     `json:"source_name" db:"source_name"`
	CandidateMasterGymID *string    `json:"candidate_master_gym_id,omitempty" db:"candidate_master_gym_id"`
	SubmittedName        *string    `json:"submitted_name,omitempty" db:"submitted_name"`
	Score                float64    `json:"score" db:"score"`
	Status               string     `json:"status" db:"status"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
	ResolvedAt           *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	ResolvedBy           *string    `json:"resolved_by,omitempty" db:"resolved_by"`
}

// IsResolved reports whether a reviewer has already acted on this match.
func (p *PendingMatch) IsResolved() bool {
	return p.Status != PendingMatchStatusPending
}

// ResolvePendingMatchRequest is the reviewer action on a pending match.
// On approval, MasterGymID selects the link target; when it is empty
// and CreateNew is set, a fresh master gym is created from the source
// gym's own details first.
type ResolvePendingMatchRequest struct {
	MasterGymID string `json:"master_gym_id,omitempty"`
	CreateNew   bool   `json:"create_new,omitempty"`
}
