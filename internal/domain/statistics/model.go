package statistics

import (
	"time"

	"github.com/google/uuid"
)

// Statistics is the single summary row. The counters other than
// AverageProcessingDays are derived from referrals by Recompute.
type Statistics struct {
	ID                    uuid.UUID `db:"id" json:"id"`
	TotalReferrals        int       `db:"total_referrals" json:"totalReferrals"`
	CompletedTravels      int       `db:"completed_travels" json:"completedTravels"`
	MonthlyReferrals      int       `db:"monthly_referrals" json:"monthlyReferrals"`
	PendingReferrals      int       `db:"pending_referrals" json:"pendingReferrals"`
	ApprovalRate          int       `db:"approval_rate" json:"approvalRate"`
	AverageProcessingDays int       `db:"average_processing_days" json:"averageProcessingDays"`
	LastUpdated           time.Time `db:"last_updated" json:"lastUpdated"`
}
