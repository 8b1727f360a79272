package referral

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medref/medref/internal/platform/apperr"
	"github.com/medref/medref/internal/platform/clock"
	"github.com/medref/medref/internal/platform/events"
)

type Service struct {
	repo   ReferralRepository
	events events.Publisher
	clock  clock.Clock
}

// NewService wires the referral store. pub receives referral.created after
// each successful insert and may be nil.
func NewService(repo ReferralRepository, pub events.Publisher) *Service {
	return &Service{repo: repo, events: pub, clock: clock.System()}
}

func (s *Service) SetClock(c clock.Clock) { s.clock = c }

// Create validates in, rejects a taken referral number and inserts the
// record. Publishing happens after the insert and its outcome does not
// affect the result.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Referral, error) {
	now := s.clock.Now()
	if err := validateCreate(in, now); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByReferralNumber(ctx, in.ReferralNumber); err == nil {
		return nil, apperr.Conflict("referral number already exists")
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	r := newReferral(in, now)
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}

	if s.events != nil {
		// The bus logs subscriber failures itself.
		_ = s.events.Publish(ctx, events.New(events.ReferralCreated, r.ID.String(), r.CreatedAt, map[string]string{
			"referral_number": r.ReferralNumber,
			"status":          r.Status,
		}))
	}
	return r, nil
}

// requiredFields is checked in order so the error names the first gap.
var requiredFields = []struct {
	name  string
	value func(CreateInput) string
}{
	{"patientId", func(in CreateInput) string { return in.PatientID }},
	{"patientName", func(in CreateInput) string { return in.PatientName }},
	{"referralNumber", func(in CreateInput) string { return in.ReferralNumber }},
	{"destination", func(in CreateInput) string { return in.Destination }},
	{"medicalCondition", func(in CreateInput) string { return in.MedicalCondition }},
}

func validateCreate(in CreateInput, now time.Time) error {
	for _, f := range requiredFields {
		if strings.TrimSpace(f.value(in)) == "" {
			return apperr.Validation("field %s is required", f.name)
		}
	}
	if in.Status != "" && !validStatuses[in.Status] {
		return apperr.Validation("invalid status: %s", in.Status)
	}
	if in.ApprovalDate != nil && in.ApprovalDate.After(now) {
		return apperr.Validation("approvalDate cannot be in the future")
	}
	return nil
}

func newReferral(in CreateInput, now time.Time) *Referral {
	r := &Referral{
		ID:               uuid.New(),
		PatientID:        in.PatientID,
		PatientName:      in.PatientName,
		ReferralNumber:   in.ReferralNumber,
		Destination:      in.Destination,
		Status:           in.Status,
		MedicalCondition: in.MedicalCondition,
		CreatedAt:        now,
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if in.ApprovalDate != nil && approvalStatuses[r.Status] {
		at := in.ApprovalDate.UTC()
		r.ApprovalDate = &at
	}
	return r
}

func (s *Service) GetByID(ctx context.Context, id string) (*Referral, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NotFound("referral not found")
	}
	return s.repo.GetByID(ctx, uid)
}

// Search requires at least one non-blank criterion.
func (s *Service) Search(ctx context.Context, c SearchCriteria) ([]*Referral, error) {
	c.PatientID = strings.TrimSpace(c.PatientID)
	c.ReferralNumber = strings.TrimSpace(c.ReferralNumber)
	if c.PatientID == "" && c.ReferralNumber == "" {
		return nil, apperr.Validation("missing search criteria")
	}
	items, err := s.repo.Search(ctx, c)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Referral{}
	}
	return items, nil
}

// Tally counts all referrals by status plus those created in [since, until].
func (s *Service) Tally(ctx context.Context, since, until time.Time) (Tally, error) {
	return s.repo.Tally(ctx, since, until)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
