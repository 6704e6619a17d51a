package enums

// PlanStatus advances monotonically over a delivery plan's lifetime.
type PlanStatus string

const (
	PlanStatusPending   PlanStatus = "pending"
	PlanStatusApproved  PlanStatus = "approved"
	PlanStatusExecuting PlanStatus = "executing"
	PlanStatusCompleted PlanStatus = "completed"
)

var planStatusOrder = map[PlanStatus]int{
	PlanStatusPending:   0,
	PlanStatusApproved:  1,
	PlanStatusExecuting: 2,
	PlanStatusCompleted: 3,
}

// String implements fmt.Stringer.
func (p PlanStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PlanStatus.
func (p PlanStatus) IsValid() bool {
	_, ok := planStatusOrder[p]
	return ok
}

// CanAdvanceTo enforces monotonic forward-only transitions.
func (p PlanStatus) CanAdvanceTo(next PlanStatus) bool {
	from, ok := planStatusOrder[p]
	if !ok {
		return false
	}
	to, ok := planStatusOrder[next]
	if !ok {
		return false
	}
	return to > from
}
