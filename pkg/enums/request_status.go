package enums

import "fmt"

// RequestStatus tracks the lifecycle of a fulfillment request.
type RequestStatus string

const (
	RequestStatusPending           RequestStatus = "pending"
	RequestStatusProcessing        RequestStatus = "processing"
	RequestStatusInsufficientStock RequestStatus = "insufficient_stock"
	RequestStatusAllocated         RequestStatus = "allocated"
	RequestStatusError             RequestStatus = "error"
	RequestStatusApproved          RequestStatus = "approved"
	RequestStatusCompleted         RequestStatus = "completed"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusProcessing,
	RequestStatusInsufficientStock,
	RequestStatusAllocated,
	RequestStatusError,
	RequestStatusApproved,
	RequestStatusCompleted,
}

// String implements fmt.Stringer.
func (r RequestStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RequestStatus.
func (r RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the orchestrator stops acting on the request.
func (r RequestStatus) IsTerminal() bool {
	switch r {
	case RequestStatusInsufficientStock, RequestStatusAllocated, RequestStatusError:
		return true
	}
	return false
}

// Validate returns an error when the value is unknown.
func (r RequestStatus) Validate() error {
	if !r.IsValid() {
		return fmt.Errorf("invalid request status %q", string(r))
	}
	return nil
}
