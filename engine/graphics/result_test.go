package graphics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeString(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{Ok, "Ok"},
		{ArgumentInvalid, "ArgumentInvalid"},
		{ArgumentNull, "ArgumentNull"},
		{ArgumentOutOfRange, "ArgumentOutOfRange"},
		{InvalidOperation, "InvalidOperation"},
		{Unsupported, "Unsupported"},
		{Unimplemented, "Unimplemented"},
		{RuntimeError, "RuntimeError"},
		{Code(200), "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.code.String())
	}
}

func TestResultError(t *testing.T) {
	err := NewResult(ArgumentOutOfRange, "offset %d past end %d", 32, 16)
	assert.Equal(t, "ArgumentOutOfRange: offset 32 past end 16", err.Error())

	bare := &Result{Code: RuntimeError}
	assert.Equal(t, "RuntimeError", bare.Error())
}

func TestResultIsOk(t *testing.T) {
	var nilResult *Result
	assert.True(t, nilResult.IsOk())
	assert.True(t, (&Result{Code: Ok}).IsOk())
	assert.False(t, NewResult(RuntimeError, "boom").IsOk())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, Ok, CodeOf(nil))
	assert.Equal(t, ArgumentNull, CodeOf(NewResult(ArgumentNull, "missing")))
	assert.Equal(t, RuntimeError, CodeOf(errors.New("native failure")))
}
