package colors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestDisableColor ensures color functions return plain strings once coloring is disabled, and ANSI-wrapped strings
// when it is enabled.
func TestDisableColor(t *testing.T) {
	defer EnableColor()

	DisableColor()
	assert.Equal(t, "slot", Yellow("slot"))
	assert.Equal(t, "7", GreenBold(7))

	enabled = true
	assert.Equal(t, "\x1b[33mslot\x1b[0m", Yellow("slot"))
	assert.Equal(t, "slot", Reset("slot"))
}
