package enums

// StockChangeType labels the cause of an inventory mutation.
type StockChangeType string

const (
	StockChangeSale       StockChangeType = "sale"
	StockChangeRestock    StockChangeType = "restock"
	StockChangeAdjustment StockChangeType = "adjustment"
	StockChangeDamage     StockChangeType = "damage"
	StockChangeExpired    StockChangeType = "expired"
)

var validStockChangeTypes = []StockChangeType{
	StockChangeSale,
	StockChangeRestock,
	StockChangeAdjustment,
	StockChangeDamage,
	StockChangeExpired,
}

// String implements fmt.Stringer.
func (s StockChangeType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockChangeType.
func (s StockChangeType) IsValid() bool {
	for _, candidate := range validStockChangeTypes {
		if candidate == s {
			return true
		}
	}
	return false
}
