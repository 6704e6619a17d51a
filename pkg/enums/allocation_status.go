package enums

// AllocationStatus summarizes an append-only allocation record.
type AllocationStatus string

const (
	AllocationStatusCompleted AllocationStatus = "completed"
	AllocationStatusPartial   AllocationStatus = "partial"
)

// String implements fmt.Stringer.
func (a AllocationStatus) String() string {
	return string(a)
}
