package statistics

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/medref/medref/internal/platform/apperr"
)

type manualField struct {
	external string
	column   string
	set      func(*Statistics, int)
}

// manualFields lists every counter a manual update may overwrite. id and
// lastUpdated are not writable.
var manualFields = []manualField{
	{"totalReferrals", "total_referrals", func(s *Statistics, v int) { s.TotalReferrals = v }},
	{"completedTravels", "completed_travels", func(s *Statistics, v int) { s.CompletedTravels = v }},
	{"monthlyReferrals", "monthly_referrals", func(s *Statistics, v int) { s.MonthlyReferrals = v }},
	{"pendingReferrals", "pending_referrals", func(s *Statistics, v int) { s.PendingReferrals = v }},
	{"approvalRate", "approval_rate", func(s *Statistics, v int) { s.ApprovalRate = v }},
	{"averageProcessingDays", "average_processing_days", func(s *Statistics, v int) { s.AverageProcessingDays = v }},
}

// fieldsByKey accepts both the external and the column name of each field.
var fieldsByKey = func() map[string]*manualField {
	m := make(map[string]*manualField, 2*len(manualFields))
	for i := range manualFields {
		f := &manualFields[i]
		m[f.external] = f
		m[f.column] = f
	}
	return m
}()

type assignment struct {
	field *manualField
	value int
}

// ManualUpdate is a validated set of counter overwrites.
type ManualUpdate struct {
	assignments []assignment
}

// Len reports how many recognized keys the update carries.
func (u ManualUpdate) Len() int { return len(u.assignments) }

func (u ManualUpdate) apply(s *Statistics) {
	for _, a := range u.assignments {
		a.field.set(s, a.value)
	}
}

// ParseManualUpdate decodes a JSON object of counter values. Unrecognized
// keys are ignored. Recognized keys need an integral number that fits the
// column. When a field appears under both names, keys are applied in
// lexical order so the result does not depend on map iteration.
func ParseManualUpdate(data []byte) (ManualUpdate, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return ManualUpdate{}, apperr.Validation("request body must be a JSON object")
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		if _, ok := fieldsByKey[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	u := ManualUpdate{assignments: make([]assignment, 0, len(keys))}
	for _, k := range keys {
		v, err := parseCounter(raw[k])
		if err != nil {
			return ManualUpdate{}, apperr.Validation("field %s must be an integer", k)
		}
		u.assignments = append(u.assignments, assignment{field: fieldsByKey[k], value: v})
	}
	return u, nil
}

func parseCounter(msg json.RawMessage) (int, error) {
	num := string(bytes.TrimSpace(msg))
	if num == "" || !(num[0] == '-' || (num[0] >= '0' && num[0] <= '9')) {
		return 0, strconv.ErrSyntax
	}
	if i, err := strconv.ParseInt(num, 10, 64); err == nil {
		return checkRange(float64(i))
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, strconv.ErrSyntax
	}
	return checkRange(f)
}

func checkRange(f float64) (int, error) {
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, strconv.ErrRange
	}
	return int(f), nil
}
