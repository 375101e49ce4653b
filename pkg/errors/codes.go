package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes follow the "<MODULE>_<nnn>" convention.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeStorageError       ErrorCode = "COMMON_015"
	ErrCodeMessagingError     ErrorCode = "COMMON_016"
)

// Short aliases used at call sites.
const (
	CodeOK      = ErrorCode("OK")
	CodeUnknown = ErrorCode("UNKNOWN")

	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeValidation     = ErrCodeValidation
	CodeSerialization  = ErrCodeSerialization
	CodeDatabaseError  = ErrCodeDatabaseError
	CodeCacheError     = ErrCodeCacheError
	CodeStorageError   = ErrCodeStorageError
	CodeMessagingError = ErrCodeMessagingError
	CodeTimeout        = ErrCodeTimeout
)

// Taxonomy Module Error Codes
const (
	CodeLabelNotFound        ErrorCode = "TAX_001"
	CodeNoMatch              ErrorCode = "TAX_002"
	CodeInvalidTaxonomyEntry ErrorCode = "TAX_003"
	CodeUnknownCategory      ErrorCode = "TAX_004"
)

// Question Numbering Error Codes
const (
	CodeInvalidQuestionNumber ErrorCode = "QNUM_001"
	CodeAmbiguousNumbering    ErrorCode = "QNUM_002"
	CodeInvalidNumberingRule  ErrorCode = "QNUM_003"
)

// Question Part Error Codes
const (
	CodeMissingPartMarks   ErrorCode = "QPART_001"
	CodeInvalidPartLetter  ErrorCode = "QPART_002"
	CodeDuplicatePart      ErrorCode = "QPART_003"
	CodeMissingMainContext ErrorCode = "QPART_004"
	CodeMarksMismatch      ErrorCode = "QPART_005"
	CodeMixedQuestionKey   ErrorCode = "QPART_006"
	CodeQuestionNotFound   ErrorCode = "QPART_007"
)

// Answer Key Error Codes
const (
	CodeUnparsableKey ErrorCode = "AKEY_001"
	CodeNoCandidate   ErrorCode = "AKEY_002"
	CodePDFExtraction ErrorCode = "AKEY_003"
)

// Source Storage Error Codes
const (
	CodeObjectNotFound ErrorCode = "STORE_001"
)

// Paper Structure Error Codes
const (
	CodeUnknownSection     ErrorCode = "PAPER_001"
	CodeStructureViolation ErrorCode = "PAPER_002"
)

// Classification Error Codes
const (
	CodeInvalidProposal ErrorCode = "CLS_001"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusBadRequest,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeStorageError:       http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusInternalServerError,

	CodeLabelNotFound:        http.StatusNotFound,
	CodeNoMatch:              http.StatusNotFound,
	CodeInvalidTaxonomyEntry: http.StatusBadRequest,
	CodeUnknownCategory:      http.StatusBadRequest,

	CodeInvalidQuestionNumber: http.StatusBadRequest,
	CodeAmbiguousNumbering:    http.StatusConflict,
	CodeInvalidNumberingRule:  http.StatusBadRequest,

	CodeMissingPartMarks:   http.StatusBadRequest,
	CodeInvalidPartLetter:  http.StatusBadRequest,
	CodeDuplicatePart:      http.StatusBadRequest,
	CodeMissingMainContext: http.StatusBadRequest,
	CodeMarksMismatch:      http.StatusBadRequest,
	CodeMixedQuestionKey:   http.StatusBadRequest,
	CodeQuestionNotFound:   http.StatusNotFound,

	CodeUnparsableKey:  http.StatusUnprocessableEntity,
	CodeNoCandidate:    http.StatusNotFound,
	CodeObjectNotFound: http.StatusNotFound,
	CodePDFExtraction:  http.StatusUnprocessableEntity,

	CodeUnknownSection:     http.StatusBadRequest,
	CodeStructureViolation: http.StatusUnprocessableEntity,

	CodeInvalidProposal: http.StatusBadRequest,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeStorageError:       "object storage error",
	ErrCodeMessagingError:     "messaging error",

	CodeLabelNotFound:        "label not in taxonomy",
	CodeNoMatch:              "no taxonomy label above similarity threshold",
	CodeInvalidTaxonomyEntry: "invalid taxonomy entry",
	CodeUnknownCategory:      "unknown taxonomy category",

	CodeInvalidQuestionNumber: "invalid question number",
	CodeAmbiguousNumbering:    "ambiguous question numbering",
	CodeInvalidNumberingRule:  "invalid numbering rule",

	CodeMissingPartMarks:   "marks missing for question part",
	CodeInvalidPartLetter:  "invalid part letter",
	CodeDuplicatePart:      "duplicate question part",
	CodeMissingMainContext: "multi-part question requires shared context",
	CodeMarksMismatch:      "part marks do not add up to question total",
	CodeMixedQuestionKey:   "parts belong to different questions",
	CodeQuestionNotFound:   "question not found",

	CodeUnparsableKey:  "answer key entry could not be parsed",
	CodeNoCandidate:    "no answer key candidate for question part",
	CodeObjectNotFound: "source object not found",
	CodePDFExtraction:  "failed to extract text from PDF",

	CodeUnknownSection:     "unknown paper section",
	CodeStructureViolation: "paper structure violation",

	CodeInvalidProposal: "invalid classification proposal",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
