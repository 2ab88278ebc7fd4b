package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiverValueRejectsMissingFields(t *testing.T) {
	_, err := Receiver{Name: "Lan", Phone: ""}.Value()
	require.Error(t, err)
}

func TestReceiverScanFromDriverValue(t *testing.T) {
	in := Receiver{Name: "Lan", Phone: "0901234567", Address: "12 Hang Bac"}
	stored, err := in.Value()
	require.NoError(t, err)

	var out Receiver
	require.NoError(t, out.Scan([]byte(stored.(string))))
	assert.Equal(t, in, out)
}

func TestTranslationSnapshotsNilStoresEmptyArray(t *testing.T) {
	var snaps TranslationSnapshots
	stored, err := snaps.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", stored)

	var out TranslationSnapshots
	require.NoError(t, out.Scan(`[{"id":3,"name":"Ao","description":"d","languageId":"vi"}]`))
	require.Len(t, out, 1)
	assert.Equal(t, "vi", out[0].LanguageID)
}
