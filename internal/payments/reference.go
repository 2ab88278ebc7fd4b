package payments

import (
	"strconv"
	"strings"

	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
)

// DefaultReferencePrefix marks the payment id inside a bank transfer memo.
const DefaultReferencePrefix = "DH"

// FormatReference renders the memo a buyer must put on the bank transfer.
func FormatReference(prefix string, paymentID int64) string {
	if prefix == "" {
		prefix = DefaultReferencePrefix
	}
	return prefix + strconv.FormatInt(paymentID, 10)
}

// ParseReference extracts the payment id from the gateway code, falling back
// to the free-text transfer content. The id is the run of digits right after
// the first occurrence of prefix.
func ParseReference(prefix, code, content string) (int64, error) {
	if prefix == "" {
		prefix = DefaultReferencePrefix
	}
	source := strings.TrimSpace(code)
	if source == "" {
		source = content
	}

	idx := strings.Index(source, prefix)
	if idx < 0 {
		return 0, malformedReference(source)
	}
	rest := source[idx+len(prefix):]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, malformedReference(source)
	}
	id, err := strconv.ParseInt(rest[:end], 10, 64)
	if err != nil || id <= 0 {
		return 0, malformedReference(source)
	}
	return id, nil
}

func malformedReference(source string) error {
	return pkgerrors.New(pkgerrors.CodeMalformedReference, "cannot get payment id from transfer content").
		WithDetails(map[string]any{"reference": source})
}
