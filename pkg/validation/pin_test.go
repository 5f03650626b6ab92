package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCoordinate(t *testing.T) {
	assert.NoError(t, ValidateCoordinate(0, 0))
	assert.NoError(t, ValidateCoordinate(-90, -180))
	assert.NoError(t, ValidateCoordinate(90, 180))

	assert.Error(t, ValidateCoordinate(90.1, 0))
	assert.Error(t, ValidateCoordinate(-90.1, 0))
	assert.Error(t, ValidateCoordinate(0, 180.1))
	assert.Error(t, ValidateCoordinate(0, -180.1))
}

func TestValidateMessage(t *testing.T) {
	assert.NoError(t, ValidateMessage("hi"))
	assert.NoError(t, ValidateMessage(strings.Repeat("a", MaxMessageLength)))
	// Length counts runes, not bytes.
	assert.NoError(t, ValidateMessage(strings.Repeat("ü", MaxMessageLength)))

	assert.Error(t, ValidateMessage(""))
	assert.Error(t, ValidateMessage(strings.Repeat("a", MaxMessageLength+1)))
	assert.Error(t, ValidateMessage(string([]byte{0xff, 0xfe})))
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(MinAmount))
	assert.NoError(t, ValidateAmount(1440))

	assert.Error(t, ValidateAmount(0))
	assert.Error(t, ValidateAmount(-1))
}
