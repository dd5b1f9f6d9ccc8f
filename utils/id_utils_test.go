package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordId(t *testing.T) {
	id := GenerateRecordId()
	require.True(t, IsRecordId(id))

	assert.False(t, IsRecordId(""))
	assert.False(t, IsRecordId("not-a-uuid"))
	assert.False(t, IsRecordId("11111111-2222-4333-8444"))

	other := GenerateRecordId()
	assert.NotEqual(t, id, other)
}

func TestCalculateCid(t *testing.T) {
	content := []byte("content addressed bytes")

	c1, err := CalculateCid(content)
	require.NoError(t, err)
	c2, err := CalculateCid(content)
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
	assert.Equal(t, uint64(1), c1.Prefix().Version)

	c3, err := CalculateCid(append([]byte{0x00}, content...))
	require.NoError(t, err)
	assert.NotEqual(t, c1, c3)
}

func TestMarshalUnmarshal(t *testing.T) {
	type payload struct {
		Name  string
		Count int
	}

	data, err := Marshal(payload{Name: "a", Count: 3})
	require.NoError(t, err)

	var got payload
	require.NoError(t, Unmarshal(data, &got))
	assert.Equal(t, payload{Name: "a", Count: 3}, got)

	require.Error(t, Unmarshal([]byte("{bad"), &got))
}
