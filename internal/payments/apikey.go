package payments

import (
	"crypto/subtle"
	"strings"

	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
)

const apiKeyScheme = "apikey"

// AuthorizeAPIKey checks an `Authorization: Apikey <key>` header. An empty
// expected key disables the check.
func AuthorizeAPIKey(header, expected string) error {
	if expected == "" {
		return nil
	}
	scheme, key, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, apiKeyScheme) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing api key")
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(key)), []byte(expected)) != 1 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api key")
	}
	return nil
}
