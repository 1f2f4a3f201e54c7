package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel(" Warning ")
	require.True(t, ok)
	require.Equal(t, zerolog.WarnLevel, lvl)

	lvl, ok = ParseLevel("off")
	require.True(t, ok)
	require.Equal(t, zerolog.Disabled, lvl)

	_, ok = ParseLevel("")
	require.False(t, ok)
	_, ok = ParseLevel("verbose")
	require.False(t, ok)
}

func TestParseBool(t *testing.T) {
	require.True(t, parseBool("yes"))
	require.True(t, parseBool("TRUE"))
	require.False(t, parseBool(""))
	require.False(t, parseBool("nope"))
}
