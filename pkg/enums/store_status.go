package enums

// StoreStatus tracks whether a store is accepting deliveries.
type StoreStatus string

const (
	StoreStatusActive      StoreStatus = "active"
	StoreStatusInactive    StoreStatus = "inactive"
	StoreStatusMaintenance StoreStatus = "maintenance"
)

// String implements fmt.Stringer.
func (s StoreStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StoreStatus.
func (s StoreStatus) IsValid() bool {
	switch s {
	case StoreStatusActive, StoreStatusInactive, StoreStatusMaintenance:
		return true
	}
	return false
}
