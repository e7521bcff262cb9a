package liquid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetDebugTogglesLogging(t *testing.T) {
	defer SetDebug(false)

	SetDebug(true)
	assert.True(t, options.debug)

	SetDebug(false)
	assert.False(t, options.debug)
}
