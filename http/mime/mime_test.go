package mime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComplies(t *testing.T) {
	require.True(t, Complies(JSON, "application/json"))
	require.True(t, Complies(JSON, "Application/JSON"))
	require.True(t, Complies(JSON, "application/json; charset=utf-8"))
	require.True(t, Complies(JSON, ""))
	require.False(t, Complies(JSON, "text/plain"))
	require.False(t, Complies(Plain, "text/plain+xml"))
}
