package errors

import (
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal        ErrorCode = "COMMON_001"
	ErrCodeBadRequest      ErrorCode = "COMMON_002"
	ErrCodeNotFound        ErrorCode = "COMMON_005"
	ErrCodeTimeout         ErrorCode = "COMMON_009"
	ErrCodeValidation      ErrorCode = "COMMON_010"
	ErrCodeSerialization   ErrorCode = "COMMON_011"
	ErrCodeCanceled        ErrorCode = "COMMON_017"
	ErrCodeConfigInvalid   ErrorCode = "COMMON_018"
	ErrCodeFeatureDisabled ErrorCode = "COMMON_015"
)

// Aliases
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
)

// Well indexer codes
const (
	ErrCodeGeometryInvalid  ErrorCode = "WELL_001"
	ErrCodeWellLabelInvalid ErrorCode = "WELL_002"
	ErrCodeWellIndexInvalid ErrorCode = "WELL_003"
)

// Protocol analyzer codes
const (
	ErrCodeProtocolRead   ErrorCode = "PROTO_001"
	ErrCodeProtocolSyntax ErrorCode = "PROTO_002"
	ErrCodeProtocolNoRun  ErrorCode = "PROTO_003"
	ErrCodeProtocolParser ErrorCode = "PROTO_004"
)

// Reagent input codes
const (
	ErrCodeReagentRead          ErrorCode = "REAG_001"
	ErrCodeReagentColumnMissing ErrorCode = "REAG_002"
	ErrCodeReagentListEmpty     ErrorCode = "REAG_003"
	ErrCodeReagentDuplicateID   ErrorCode = "REAG_004"
)

// Enumeration codes
const (
	ErrCodeEnumerationFailed ErrorCode = "ENUM_001"
	ErrCodeOracleFailed      ErrorCode = "ENUM_002"
	ErrCodeStructureInvalid  ErrorCode = "ENUM_003"
)

// Merge codes
const (
	ErrCodeMergeInputRead     ErrorCode = "MERGE_001"
	ErrCodeMergeColumnMissing ErrorCode = "MERGE_002"
	ErrCodeMergeValueInvalid  ErrorCode = "MERGE_003"
	ErrCodeMergeIncomplete    ErrorCode = "MERGE_004"
)

// Output and infrastructure codes
const (
	ErrCodeOutputWrite    ErrorCode = "INFRA_001"
	ErrCodeCacheError     ErrorCode = "INFRA_002"
	ErrCodeStorageError   ErrorCode = "INFRA_003"
	ErrCodeMessagingError ErrorCode = "INFRA_004"
	ErrCodeDatabaseError  ErrorCode = "INFRA_005"
	ErrCodeMigrationError ErrorCode = "INFRA_006"
	ErrCodeMetricsExport  ErrorCode = "INFRA_007"
)

// ErrorCodeMessage maps codes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:        "internal error",
	ErrCodeBadRequest:      "bad request",
	ErrCodeNotFound:        "resource not found",
	ErrCodeTimeout:         "operation timed out",
	ErrCodeValidation:      "validation failed",
	ErrCodeSerialization:   "serialization failed",
	ErrCodeCanceled:        "operation canceled",
	ErrCodeConfigInvalid:   "invalid configuration",
	ErrCodeFeatureDisabled: "feature disabled",

	ErrCodeGeometryInvalid:  "invalid plate geometry",
	ErrCodeWellLabelInvalid: "invalid well label",
	ErrCodeWellIndexInvalid: "invalid well index",

	ErrCodeProtocolRead:   "failed to read protocol",
	ErrCodeProtocolSyntax: "protocol has syntax errors",
	ErrCodeProtocolNoRun:  "could not find run(protocol) function",
	ErrCodeProtocolParser: "protocol parser failure",

	ErrCodeReagentRead:          "failed to read reagent table",
	ErrCodeReagentColumnMissing: "reagent table is missing a required column",
	ErrCodeReagentListEmpty:     "reagent list is empty after parsing",
	ErrCodeReagentDuplicateID:   "duplicate reagent id",

	ErrCodeEnumerationFailed: "enumeration failed",
	ErrCodeOracleFailed:      "reaction oracle failed",
	ErrCodeStructureInvalid:  "invalid structure",

	ErrCodeMergeInputRead:     "failed to read merge input",
	ErrCodeMergeColumnMissing: "merge input is missing a required column",
	ErrCodeMergeValueInvalid:  "merge input holds an invalid value",
	ErrCodeMergeIncomplete:    "plate map is incomplete",

	ErrCodeOutputWrite:    "failed to write output",
	ErrCodeCacheError:     "cache error",
	ErrCodeStorageError:   "object storage error",
	ErrCodeMessagingError: "messaging error",
	ErrCodeDatabaseError:  "database error",
	ErrCodeMigrationError: "database migration error",
	ErrCodeMetricsExport:  "metrics export failed",
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

// IsIncomplete reports whether err signals a data-completeness gap rather
// than a failure to run.
func IsIncomplete(err error) bool {
	return IsCode(err, ErrCodeMergeIncomplete)
}

//Personal.AI order the ending
