package enums

import "fmt"

// TransferType is the direction of a bank transfer reported by the payment gateway.
type TransferType string

const (
	TransferTypeIn  TransferType = "in"
	TransferTypeOut TransferType = "out"
)

func (t TransferType) IsValid() bool {
	return t == TransferTypeIn || t == TransferTypeOut
}

// ParseTransferType converts raw input into a TransferType.
func ParseTransferType(value string) (TransferType, error) {
	switch TransferType(value) {
	case TransferTypeIn, TransferTypeOut:
		return TransferType(value), nil
	default:
		return "", fmt.Errorf("invalid transfer type %q", value)
	}
}
