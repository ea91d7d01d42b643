package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, err := ParseRole("parent")
	require.NoError(t, err)
	assert.Equal(t, RoleParent, role)

	role, err = ParseRole("provider")
	require.NoError(t, err)
	assert.Equal(t, RoleProvider, role)

	_, err = ParseRole("admin")
	assert.Error(t, err)
}

func TestRoleOpposite(t *testing.T) {
	assert.Equal(t, RoleProvider, RoleParent.Opposite())
	assert.Equal(t, RoleParent, RoleProvider.Opposite())
}

func TestRoleRoundTripsThroughClaim(t *testing.T) {
	for _, role := range []Role{RoleParent, RoleProvider} {
		parsed, err := ParseRole(role.String())
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}
}
