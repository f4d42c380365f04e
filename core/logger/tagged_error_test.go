package logger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithTag_NilError(t *testing.T) {
	assert.Nil(t, WithTag("cli", nil))
}

func TestErrorTag_FromWrappedChain(t *testing.T) {
	base := errors.New("boom")
	tagged := WithTag("start", base)
	wrapped := fmt.Errorf("outer: %w", tagged)

	assert.Equal(t, "start", ErrorTag(wrapped))
	assert.ErrorIs(t, wrapped, base)
	assert.Equal(t, "boom", tagged.Error())
}

func TestErrorTag_Untagged(t *testing.T) {
	assert.Equal(t, "", ErrorTag(errors.New("plain")))
	assert.Equal(t, "", ErrorTag(nil))
}

func TestLogger_ErrorfReturnsTaggedError(t *testing.T) {
	err := New("validate").Errorf("config %s is invalid", "semlayer.yaml")

	assert.EqualError(t, err, "config semlayer.yaml is invalid")
	assert.Equal(t, "validate", ErrorTag(err))
}

func TestWithExitCode_KeepsTag(t *testing.T) {
	err := WithExitCode(ExitConfig, New("config").Errorf("bad port"))

	assert.Equal(t, "config", ErrorTag(err))
	assert.Equal(t, ExitConfig, ExitCode(fmt.Errorf("start: %w", err)))
	assert.EqualError(t, err, "bad port")
}

func TestExitCode_Defaults(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("plain")))
	assert.Equal(t, ExitFailure, ExitCode(WithTag("query", errors.New("tagged"))))
	assert.Nil(t, WithExitCode(ExitAuth, nil))
}

func TestLogger_ConfigErrorf(t *testing.T) {
	err := New("config").ConfigErrorf("missing %s", "auth.jwt_secret")

	assert.Equal(t, "config", ErrorTag(err))
	assert.Equal(t, ExitConfig, ExitCode(err))
}
