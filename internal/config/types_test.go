package config

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	require.Error(t, d.UnmarshalText([]byte("-5s")), "negative durations rejected")
	require.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestDuration_Marshal(t *testing.T) {
	d := Duration(time.Minute + 30*time.Second)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(raw))
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("sk-very-secret")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.NotContains(t, fmt.Sprintf("%v", s), "very-secret")

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(raw))

	assert.Equal(t, "sk-very-secret", s.Value())

	assert.Empty(t, Secret("").String(), "empty secret stays empty for presence checks")
}
