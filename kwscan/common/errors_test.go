package common

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationUtils_ValidatePath(t *testing.T) {
	vu := NewValidationUtils()

	assert.NoError(t, vu.ValidatePath("a.txt"))
	assert.ErrorIs(t, vu.ValidatePath("  "), ErrPathEmpty)
	assert.ErrorIs(t, vu.ValidatePath(strings.Repeat("a", 4097)), ErrPathTooLong)
	assert.ErrorIs(t, vu.ValidatePath("a\x00b"), ErrPathInvalid)
}

func TestValidationUtils_ValidateContextCancellation(t *testing.T) {
	vu := NewValidationUtils()

	require.NoError(t, vu.ValidateContextCancellation(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, vu.ValidateContextCancellation(ctx), context.Canceled)
}

func TestErrorUtils(t *testing.T) {
	var buf bytes.Buffer
	eu := NewErrorUtils(zerolog.New(&buf))
	base := errors.New("boom")

	assert.Nil(t, eu.WrapError(nil, "ignored"))

	wrapped := eu.WrapError(base, "read %s", "a.txt")
	assert.EqualError(t, wrapped, "read a.txt: boom")
	assert.ErrorIs(t, wrapped, base)

	logged := eu.LogAndWrapError(base, zerolog.WarnLevel, "walk %s", "dir")
	assert.ErrorIs(t, logged, base)
	assert.Contains(t, buf.String(), `"message":"walk dir"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
