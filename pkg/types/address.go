package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Metadata keys used when a shipping address travels through a payment provider.
const (
	MetadataDetails    = "details"
	MetadataCity       = "city"
	MetadataPostalCode = "postalCode"
	MetadataPhone      = "phone"
)

// ShippingAddress is stored as jsonb on orders and round-trips through checkout metadata.
type ShippingAddress struct {
	Details    string `json:"details"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode,omitempty"`
	Phone      string `json:"phone"`
}

// Normalize trims every field.
func (a ShippingAddress) Normalize() ShippingAddress {
	return ShippingAddress{
		Details:    strings.TrimSpace(a.Details),
		City:       strings.TrimSpace(a.City),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Phone:      strings.TrimSpace(a.Phone),
	}
}

// IsZero reports whether no field carries a value.
func (a ShippingAddress) IsZero() bool {
	n := a.Normalize()
	return n.Details == "" && n.City == "" && n.PostalCode == "" && n.Phone == ""
}

// Metadata flattens the address into string pairs, skipping empty fields.
func (a ShippingAddress) Metadata() map[string]string {
	n := a.Normalize()
	out := map[string]string{}
	for key, value := range map[string]string{
		MetadataDetails:    n.Details,
		MetadataCity:       n.City,
		MetadataPostalCode: n.PostalCode,
		MetadataPhone:      n.Phone,
	} {
		if value != "" {
			out[key] = value
		}
	}
	return out
}

// ShippingAddressFromMetadata rebuilds an address from provider metadata.
func ShippingAddressFromMetadata(metadata map[string]string) ShippingAddress {
	if len(metadata) == 0 {
		return ShippingAddress{}
	}
	return ShippingAddress{
		Details:    metadata[MetadataDetails],
		City:       metadata[MetadataCity],
		PostalCode: metadata[MetadataPostalCode],
		Phone:      metadata[MetadataPhone],
	}.Normalize()
}

// Value marshals the address as JSON.
func (a ShippingAddress) Value() (driver.Value, error) {
	payload, err := json.Marshal(a.Normalize())
	if err != nil {
		return nil, fmt.Errorf("shipping address: %w", err)
	}
	return string(payload), nil
}

// Scan decodes the JSON column.
func (a *ShippingAddress) Scan(value interface{}) error {
	if value == nil {
		*a = ShippingAddress{}
		return nil
	}

	raw, ok := toString(value)
	if !ok {
		return fmt.Errorf("shipping address: unsupported scan type %T", value)
	}
	if strings.TrimSpace(raw) == "" {
		*a = ShippingAddress{}
		return nil
	}

	var decoded ShippingAddress
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return fmt.Errorf("shipping address: %w", err)
	}
	*a = decoded
	return nil
}

func toString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}
