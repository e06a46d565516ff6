package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProjectRole_Hierarchy(t *testing.T) {
	ordered := []ProjectRole{RoleViewer, RoleEditor, RoleAdmin, RoleOwner}
	for i, min := range ordered {
		for j, have := range ordered {
			require.Equal(t, j >= i, have.AtLeast(min), "have=%s min=%s", have, min)
		}
	}
}

func TestProjectRole_UnknownNeverSatisfies(t *testing.T) {
	require.False(t, ProjectRole("ROOT").AtLeast(RoleViewer))
	require.False(t, RoleOwner.AtLeast(ProjectRole("ROOT")))
}
