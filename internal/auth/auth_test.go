package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleForExplicitTokens(t *testing.T) {
	g := NewGate("submit-secret", "approve-secret", "", nil)
	assert.Equal(t, RoleSubmitter, g.RoleFor("Bearer submit-secret"))
	assert.Equal(t, RoleApprover, g.RoleFor("Bearer approve-secret"))
	assert.Equal(t, RoleAnonymous, g.RoleFor("Bearer nope"))
	assert.Equal(t, RoleAnonymous, g.RoleFor(""))
}

func TestLegacyWriteTokenGrantsBothLanes(t *testing.T) {
	g := NewGate("", "", "legacy-secret", nil)
	role := g.RoleFor("Bearer legacy-secret")
	assert.GreaterOrEqual(t, role, RoleSubmitter)
	assert.GreaterOrEqual(t, role, RoleApprover)
}

func TestGeneratedTokensDiffer(t *testing.T) {
	g1 := NewGate("", "", "", nil)
	g2 := NewGate("", "", "", nil)
	assert.NotEqual(t, g1.submitToken, g2.submitToken)
}
