package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsKind(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("sync: %w", SinkError("create bookmark", cause))

	assert.ErrorIs(t, err, ErrSink)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrAuth)
	assert.Equal(t, "sync: create bookmark: sink error: boom", err.Error())
}

func TestError_NilCause(t *testing.T) {
	err := ConfigError("validate", nil)

	assert.ErrorIs(t, err, ErrConfig)
	assert.Equal(t, "validate: config error", err.Error())
}
