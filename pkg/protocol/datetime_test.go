package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateTimeRoundTrip(t *testing.T) {
	in := NewDateTime(time.Date(2026, 7, 31, 10, 30, 0, 500000000, time.UTC))
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out DateTime
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, in.Time.Equal(out.Time))
}

func TestParseDateTime_SecondPrecision(t *testing.T) {
	dt, ok := ParseDateTime("20260731T10:30:00")
	require.True(t, ok)
	assert.Equal(t, 2026, dt.Time.Year())
}

func TestParseDateTime_NotATimestamp(t *testing.T) {
	_, ok := ParseDateTime("hello world")
	assert.False(t, ok)
}
