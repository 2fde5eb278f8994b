package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPolicy_DefaultAllowAppendsCatchAll(t *testing.T) {
	e, err := BuildPolicy([]Rule{
		{Role: "user", Action: "write", Resource: "secrets", Effect: Deny, Priority: 100},
	}, "allow")
	require.NoError(t, err)

	assert.Equal(t, Deny, e.Evaluate("user", "write", "secrets"))
	assert.Equal(t, Allow, e.Evaluate("user", "read", "x"))
}

func TestBuildPolicy_DefaultDenyLeavesNoMatch(t *testing.T) {
	e, err := BuildPolicy(nil, "deny")
	require.NoError(t, err)
	assert.Equal(t, NoMatch, e.Evaluate("user", "read", "x"))
}

func TestBuildPolicy_InvalidEffectRejected(t *testing.T) {
	_, err := BuildPolicy(nil, "maybe")
	assert.Error(t, err)
}
