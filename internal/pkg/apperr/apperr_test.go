package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidWrapsSentinel(t *testing.T) {
	err := Invalid("%s is required", "repoUrl")
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "invalid input: repoUrl is required", err.Error())
}
