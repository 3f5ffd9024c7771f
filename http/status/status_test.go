package status

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	require.Equal(t, NotFound, CodeOf(ErrNotFound))
	require.Equal(t, NotFound, CodeOf(fmt.Errorf("looking up: %w", ErrNotFound)))
	require.Equal(t, InternalServerError, CodeOf(fmt.Errorf("plain failure")))
}

func TestText(t *testing.T) {
	require.Equal(t, Status("OK"), Text(OK))
	require.Equal(t, Status("Method Not Allowed"), Text(MethodNotAllowed))
	require.Empty(t, Text(Code(999)))
}
