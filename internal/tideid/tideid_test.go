package tideid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	id := New()
	assert.True(t, strings.HasPrefix(id, "tide_"))
	require.NoError(t, Validate(id))

	seen := make(map[string]bool)
	for range 1000 {
		id := New()
		assert.False(t, seen[id], "generated ids must be unique")
		seen[id] = true
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(New()))

	assert.Error(t, Validate(""))
	assert.Error(t, Validate("not-an-id"))
	assert.Error(t, Validate("tide_!!!"))
	// Well-formed TypeID with the wrong prefix.
	assert.Error(t, Validate("job_01h2xcejqtf2nbrexx3vqjhp41"))
}
