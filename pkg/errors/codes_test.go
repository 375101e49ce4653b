package errors

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "COMMON_001", ErrCodeInternal.String())
	assert.Equal(t, "QNUM_002", CodeAmbiguousNumbering.String())
}

func TestHTTPStatusForCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeInternal, 500},
		{ErrCodeBadRequest, 400},
		{ErrCodeNotFound, 404},
		{ErrCodeConflict, 409},
		{CodeInvalidQuestionNumber, 400},
		{CodeAmbiguousNumbering, 409},
		{CodeUnparsableKey, 422},
		{CodeQuestionNotFound, 404},
		{ErrorCode("NOPE_999"), 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, HTTPStatusForCode(tt.code), tt.code)
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "internal server error", DefaultMessageForCode(ErrCodeInternal))
	assert.Equal(t, "ambiguous question numbering", DefaultMessageForCode(CodeAmbiguousNumbering))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("NOPE_999")))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeBadRequest))
	assert.True(t, IsClientError(CodeMissingPartMarks))
	assert.False(t, IsClientError(ErrCodeInternal))
}

func TestIsServerError(t *testing.T) {
	assert.True(t, IsServerError(ErrCodeInternal))
	assert.True(t, IsServerError(ErrCodeDatabaseError))
	assert.False(t, IsServerError(ErrCodeBadRequest))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "COMMON", ModuleForCode(ErrCodeInternal))
	assert.Equal(t, "TAX", ModuleForCode(CodeNoMatch))
	assert.Equal(t, "QNUM", ModuleForCode(CodeInvalidQuestionNumber))
	assert.Equal(t, "QPART", ModuleForCode(CodeDuplicatePart))
	assert.Equal(t, "AKEY", ModuleForCode(CodeUnparsableKey))
	assert.Equal(t, "PAPER", ModuleForCode(CodeUnknownSection))
	assert.Equal(t, "CLS", ModuleForCode(CodeInvalidProposal))
	assert.Equal(t, "UNKNOWN", ModuleForCode(ErrorCode("")))
	assert.Equal(t, "UNKNOWN", ModuleForCode(CodeOK))
}

func TestErrorCodeFormat_Convention(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z]+_\d{3}$`)
	for code := range ErrorCodeHTTPStatus {
		assert.Regexp(t, pattern, string(code))
		_, hasMessage := ErrorCodeMessage[code]
		assert.True(t, hasMessage, "code %s has no default message", code)
	}
}

//Personal.AI order the ending
