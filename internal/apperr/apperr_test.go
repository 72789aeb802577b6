package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorAs(t *testing.T) {
	err := fmt.Errorf("submit wakeup: %w", NewValidationError("value", "is required"))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "value", verr.Field)
	assert.Equal(t, "value: is required", verr.Error())
}

func TestValidationfWithoutField(t *testing.T) {
	err := Validationf("", "unknown slot %q", "dawn")
	assert.Equal(t, `unknown slot "dawn"`, err.Error())
}
