package referral

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending       = "pending"
	StatusApproved      = "approved"
	StatusRejected      = "rejected"
	StatusLocalFollowup = "local_followup"
)

var validStatuses = map[string]bool{
	StatusPending:       true,
	StatusApproved:      true,
	StatusRejected:      true,
	StatusLocalFollowup: true,
}

// approvalStatuses may carry an approval date.
var approvalStatuses = map[string]bool{
	StatusApproved:      true,
	StatusLocalFollowup: true,
}

// Referral maps to the medical_referrals table. JSON tags are the external
// field names; db tags are the column names.
type Referral struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        string     `db:"patient_id" json:"patientId"`
	PatientName      string     `db:"patient_name" json:"patientName"`
	ReferralNumber   string     `db:"referral_number" json:"referralNumber"`
	Destination      string     `db:"destination" json:"destination"`
	Status           string     `db:"status" json:"status"`
	ApprovalDate     *time.Time `db:"approval_date" json:"approvalDate"`
	MedicalCondition string     `db:"medical_condition" json:"medicalCondition"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
}

// CreateInput is the payload accepted by Service.Create. Status and
// ApprovalDate are optional; createdAt is always assigned by the service.
type CreateInput struct {
	PatientID        string     `json:"patientId"`
	PatientName      string     `json:"patientName"`
	ReferralNumber   string     `json:"referralNumber"`
	Destination      string     `json:"destination"`
	MedicalCondition string     `json:"medicalCondition"`
	Status           string     `json:"status,omitempty"`
	ApprovalDate     *time.Time `json:"approvalDate,omitempty"`
}

// SearchCriteria are matched case-insensitively as substrings. Empty fields
// do not constrain the result.
type SearchCriteria struct {
	PatientID      string
	ReferralNumber string
}

// Tally is a consistent count snapshot over all referrals.
type Tally struct {
	Total    int
	Approved int
	Pending  int
	InWindow int
}
