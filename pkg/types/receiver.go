package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Receiver is the delivery contact captured on an order.
type Receiver struct {
	Name    string `json:"name" validate:"required,max=255"`
	Phone   string `json:"phone" validate:"required,min=9,max=20"`
	Address string `json:"address" validate:"required,max=500"`
}

// Validate performs the checks the database relies on.
func (r Receiver) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("receiver: missing name")
	}
	if strings.TrimSpace(r.Phone) == "" {
		return fmt.Errorf("receiver: missing phone")
	}
	if strings.TrimSpace(r.Address) == "" {
		return fmt.Errorf("receiver: missing address")
	}
	return nil
}

// Value stores the receiver as a JSON document.
func (r Receiver) Value() (driver.Value, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

// Scan reads the JSON document written by Value.
func (r *Receiver) Scan(src any) error {
	if src == nil {
		*r = Receiver{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("receiver: unsupported Scan type %T", src)
	}
	return json.Unmarshal(raw, r)
}
