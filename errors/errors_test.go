package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_AllCodesHaveTemplates(t *testing.T) {
	for code := CodeUnknown; code <= CodeUnterminatedString; code++ {
		_, ok := messages[code]
		assert.True(t, ok, "code %d has no message", code)
	}
}

func TestNew(t *testing.T) {
	err := New(CodeInvalidBody, 3, 7, "##")

	assert.Equal(t, CodeInvalidBody, err.Code)
	assert.Equal(t, `Invalid body for separator "##"`, err.Message)
	assert.Equal(t, Location{Start: 3, End: 7}, err.Loc)
	assert.Equal(t, `Invalid body for separator "##" (3-7)`, err.Error())
}

func TestShift(t *testing.T) {
	var err error = New(CodeEmptyRuleBody, 1, 2)
	shifted := Shift(err, 10)

	var se *SyntaxError
	require.True(t, errors.As(shifted, &se))
	assert.Equal(t, Location{Start: 11, End: 12}, se.Loc)

	// The original is untouched
	assert.Equal(t, Location{Start: 1, End: 2}, err.(*SyntaxError).Loc)

	plain := fmt.Errorf("plain")
	assert.Equal(t, plain, Shift(plain, 5))
}

func TestIsDisabledSyntax(t *testing.T) {
	assert.True(t, IsDisabledSyntax(New(CodeSyntaxDisabled, 0, 1, "uBlock Origin")))
	assert.False(t, IsDisabledSyntax(New(CodeEmptyRuleBody, 0, 1)))
	assert.False(t, IsDisabledSyntax(fmt.Errorf("wrapped: %w", ErrSchemaMismatch)))
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("line 3: %w", New(CodeEmptyModifiers, 0, 1))
	assert.Equal(t, CodeEmptyModifiers, CodeOf(wrapped))
	assert.Equal(t, CodeUnknown, CodeOf(ErrCorruptBuffer))
}
