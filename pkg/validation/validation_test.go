package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/vendora/vendora-backend/pkg/errors"
)

type transferShape struct {
	Gateway string `json:"gateway" validate:"required,max=5"`
	At      string `json:"at" validate:"required,datetime=2006-01-02 15:04:05"`
	Kind    string `json:"kind" validate:"oneof=in out"`
}

func TestErrorKeysDetailsByJSONName(t *testing.T) {
	err := New().Struct(transferShape{Gateway: "toolong", At: "01/03/2026", Kind: "sideways"})
	require.Error(t, err)

	typed := Error(err, "invalid body")
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, "invalid body", typed.Message())
	assert.Equal(t, map[string]string{
		"transferShape.gateway": "must be at most 5",
		"transferShape.at":      "must use layout 2006-01-02 15:04:05",
		"transferShape.kind":    "must be one of in out",
	}, typed.Details())
}

func TestValidStructPasses(t *testing.T) {
	assert.NoError(t, New().Struct(transferShape{Gateway: "MB", At: "2026-03-01 10:15:00", Kind: "in"}))
}

func TestErrorWrapsNonValidatorErrors(t *testing.T) {
	cause := errors.New("boom")
	typed := Error(cause, "invalid body")
	assert.ErrorIs(t, typed, cause)
	assert.Nil(t, typed.Details())
}
