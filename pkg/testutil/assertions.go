package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorIs checks that err wraps target and mentions every fragment.
func AssertErrorIs(t *testing.T, err, target error, fragments ...string) {
	t.Helper()
	require.ErrorIs(t, err, target)
	for _, f := range fragments {
		assert.Contains(t, err.Error(), f)
	}
}
