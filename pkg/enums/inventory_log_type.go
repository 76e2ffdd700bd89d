package enums

import "fmt"

// InventoryLogType classifies an inventory movement.
type InventoryLogType string

const (
	InventoryLogTypeSale       InventoryLogType = "sale"
	InventoryLogTypeRestock    InventoryLogType = "restock"
	InventoryLogTypeAdjustment InventoryLogType = "adjustment"
	InventoryLogTypeReturn     InventoryLogType = "return"
)

var validInventoryLogTypes = []InventoryLogType{
	InventoryLogTypeSale,
	InventoryLogTypeRestock,
	InventoryLogTypeAdjustment,
	InventoryLogTypeReturn,
}

// String implements fmt.Stringer.
func (t InventoryLogType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known InventoryLogType.
func (t InventoryLogType) IsValid() bool {
	for _, candidate := range validInventoryLogTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseInventoryLogType converts raw input into an InventoryLogType.
func ParseInventoryLogType(value string) (InventoryLogType, error) {
	for _, candidate := range validInventoryLogTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory log type %q", value)
}
