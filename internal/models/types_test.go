package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONRoundTrip(t *testing.T) {
	v, err := JSON{"size": "small"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"size":"small"}`, v)

	var j JSON
	require.NoError(t, j.Scan([]byte(`{"duration":15}`)))
	assert.Equal(t, float64(15), j["duration"])

	require.NoError(t, j.Scan(nil))
	assert.Equal(t, JSON{}, j)

	require.NoError(t, j.Scan("null"))
	assert.Equal(t, JSON{}, j)

	assert.Error(t, j.Scan(42))
}

func TestJSONMerge(t *testing.T) {
	base := JSON{"size": "small", "duration": 10}
	merged := base.Merge(map[string]interface{}{"duration": 15, "model": "sora-2"})

	assert.Equal(t, JSON{"size": "small", "duration": 15, "model": "sora-2"}, merged)
	assert.Equal(t, 10, base["duration"])
}

func TestHostModeValid(t *testing.T) {
	assert.True(t, HostModeAuto.Valid())
	assert.True(t, HostModeOverseas.Valid())
	assert.False(t, HostMode("moon").Valid())
	assert.False(t, HostMode("").Valid())
}
