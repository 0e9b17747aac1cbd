// Package matching defines the request, candidate, and result types of the
// match pipeline.
package matching

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/matchd/internal/domain"
)

// MaxScheduleSlots bounds the schedule filter size.
const MaxScheduleSlots = 21

var validSlots = buildSlotSet()

func buildSlotSet() map[string]struct{} {
	days := []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}
	parts := []string{"morning", "afternoon", "evening"}
	set := make(map[string]struct{}, len(days)*len(parts))
	for _, d := range days {
		for _, p := range parts {
			set[d+"_"+p] = struct{}{}
		}
	}
	return set
}

// Filters are the hard constraints of a match request. They are never relaxed:
// every returned candidate must satisfy all of them.
type Filters struct {
	Subject   string
	BudgetMin float64
	BudgetMax float64
	Schedule  []string
}

// Request identifies one matching query. Two requests with equal fingerprints
// are the same logical request.
type Request struct {
	OrderID      string
	Filters      Filters
	TopK         int
	ModelVersion string
}

// NewRequest validates caller input and builds a Request. ModelVersion is
// stamped by the orchestrator before fingerprinting.
func NewRequest(orderID string, filters Filters, topK int) (Request, error) {
	if orderID == "" {
		return Request{}, fmt.Errorf("%w: order_id is required", domain.ErrInvalidRequest)
	}
	if topK <= 0 {
		return Request{}, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidRequest, topK)
	}
	if filters.Subject == "" {
		return Request{}, fmt.Errorf("%w: subject filter is required", domain.ErrInvalidRequest)
	}
	if filters.BudgetMin < 0 || filters.BudgetMax < 0 {
		return Request{}, fmt.Errorf("%w: budget bounds must be non-negative", domain.ErrInvalidRequest)
	}
	if filters.BudgetMax > 0 && filters.BudgetMin > filters.BudgetMax {
		return Request{}, fmt.Errorf("%w: budget_min %v exceeds budget_max %v",
			domain.ErrInvalidRequest, filters.BudgetMin, filters.BudgetMax)
	}
	if len(filters.Schedule) > MaxScheduleSlots {
		return Request{}, fmt.Errorf("%w: too many schedule slots (max %d)",
			domain.ErrInvalidRequest, MaxScheduleSlots)
	}
	for _, slot := range filters.Schedule {
		if _, ok := validSlots[slot]; !ok {
			return Request{}, fmt.Errorf("%w: unknown schedule slot %q", domain.ErrInvalidRequest, slot)
		}
	}
	return Request{OrderID: orderID, Filters: filters, TopK: topK}, nil
}

// Fingerprint is the deterministic identity of the request: inputs plus model
// version, hashed. Used as the cache and coalescing key.
func (r Request) Fingerprint() string {
	slots := make([]string, len(r.Filters.Schedule))
	copy(slots, r.Filters.Schedule)
	sort.Strings(slots)

	var b strings.Builder
	b.WriteString(r.OrderID)
	b.WriteByte('|')
	b.WriteString(strings.ToLower(r.Filters.Subject))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(r.Filters.BudgetMin, 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(r.Filters.BudgetMax, 'g', -1, 64))
	b.WriteByte('|')
	b.WriteString(strings.Join(slots, ","))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(r.TopK))
	b.WriteByte('|')
	b.WriteString(r.ModelVersion)

	h := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(h[:])
}
