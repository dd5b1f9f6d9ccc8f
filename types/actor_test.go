package types

import (
	"testing"

	"cosmossdk.io/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorCodes(t *testing.T) {
	tests := []struct {
		code  ActorCode
		label string
	}{
		{ActorPatient, "patient"},
		{ActorDoctor, "doctor"},
		{ActorHospital, "hospital"},
		{ActorInsurer, "insurer"},
	}
	for _, tt := range tests {
		require.True(t, tt.code.Valid())
		assert.Equal(t, tt.label, tt.code.Label())

		parsed, err := ParseActorCode(tt.code.String())
		require.NoError(t, err)
		assert.Equal(t, tt.code, parsed)

		fromLabel, err := ActorFromLabel(tt.label)
		require.NoError(t, err)
		assert.Equal(t, tt.code, fromLabel)
	}
}

func TestParseActorCodeUnknown(t *testing.T) {
	for _, raw := range []string{"", "00", "05", "patient"} {
		_, err := ParseActorCode(raw)
		require.Error(t, err, raw)
		require.True(t, errors.IsOf(err, ErrUnknownActor))
	}
}

func TestParseActorCodes(t *testing.T) {
	codes, err := ParseActorCodes([]string{"01", "02", "01"})
	require.NoError(t, err)
	assert.Equal(t, []ActorCode{ActorPatient, ActorDoctor}, codes)

	_, err = ParseActorCodes(nil)
	require.Error(t, err)
	require.True(t, errors.IsOf(err, ErrMissingField))

	_, err = ParseActorCodes([]string{"01", "bogus"})
	require.Error(t, err)
	require.True(t, errors.IsOf(err, ErrUnknownActor))
}
