package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	ErrCodeInternal      ErrorCode = "COMMON_001"
	ErrCodeBadRequest    ErrorCode = "COMMON_002"
	ErrCodeNotFound      ErrorCode = "COMMON_003"
	ErrCodeConflict      ErrorCode = "COMMON_004"
	ErrCodeValidation    ErrorCode = "COMMON_005"
	ErrCodeDatabaseError ErrorCode = "COMMON_006"
	ErrCodeTimeout       ErrorCode = "COMMON_007"
	ErrCodeConfiguration ErrorCode = "COMMON_008"
	ErrCodeUnknown       ErrorCode = "COMMON_099"

	CodeOK = ErrorCode("OK")
)

// Reference-data error codes
const (
	ErrCodePartyNotFound     ErrorCode = "REF_001"
	ErrCodePeriodNotFound    ErrorCode = "REF_002"
	ErrCodeGroupNotFound     ErrorCode = "REF_003"
	ErrCodeSubstanceNotFound ErrorCode = "REF_004"
	ErrCodeHistoryMissing    ErrorCode = "REF_005"
)

// Aggregation engine error codes
const (
	ErrCodeRecomputeFailed    ErrorCode = "AGG_001"
	ErrCodeProdConsCorrupt    ErrorCode = "AGG_002"
	ErrCodeContributionAbsent ErrorCode = "AGG_003"
)

// Baseline calculator error codes
const (
	ErrCodeUnknownBaselineType  ErrorCode = "BSL_001"
	ErrCodeBadSourcePeriodCount ErrorCode = "BSL_002"
	ErrCodeBaselineDependency   ErrorCode = "BSL_003"
)

// Limit calculator error codes
const (
	ErrCodeUnknownLimitType ErrorCode = "LIM_001"
	ErrCodeControlMeasure   ErrorCode = "LIM_002"
)

// Submission lifecycle error codes
const (
	ErrCodeSubmissionNotFound     ErrorCode = "SUB_001"
	ErrCodeUnknownWorkflow        ErrorCode = "SUB_002"
	ErrCodeUnknownTransition      ErrorCode = "SUB_003"
	ErrCodeTransitionNotReachable ErrorCode = "SUB_004"
	ErrCodeTransitionUnavailable  ErrorCode = "SUB_005"
	ErrCodeDuplicateDataEntry     ErrorCode = "SUB_006"
	ErrCodeVersionConflict        ErrorCode = "SUB_007"
	ErrCodeNotEditable            ErrorCode = "SUB_008"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes for the excluded
// REST/admin layer.  The core never serves HTTP itself.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:      http.StatusInternalServerError,
	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeConflict:      http.StatusConflict,
	ErrCodeValidation:    http.StatusUnprocessableEntity,
	ErrCodeDatabaseError: http.StatusInternalServerError,
	ErrCodeTimeout:       http.StatusGatewayTimeout,
	ErrCodeConfiguration: http.StatusInternalServerError,
	ErrCodeUnknown:       http.StatusInternalServerError,

	ErrCodePartyNotFound:     http.StatusNotFound,
	ErrCodePeriodNotFound:    http.StatusNotFound,
	ErrCodeGroupNotFound:     http.StatusNotFound,
	ErrCodeSubstanceNotFound: http.StatusNotFound,
	ErrCodeHistoryMissing:    http.StatusNotFound,

	ErrCodeRecomputeFailed:    http.StatusInternalServerError,
	ErrCodeProdConsCorrupt:    http.StatusInternalServerError,
	ErrCodeContributionAbsent: http.StatusInternalServerError,

	ErrCodeUnknownBaselineType:  http.StatusInternalServerError,
	ErrCodeBadSourcePeriodCount: http.StatusInternalServerError,
	ErrCodeBaselineDependency:   http.StatusInternalServerError,

	ErrCodeUnknownLimitType: http.StatusInternalServerError,
	ErrCodeControlMeasure:   http.StatusInternalServerError,

	ErrCodeSubmissionNotFound:     http.StatusNotFound,
	ErrCodeUnknownWorkflow:        http.StatusInternalServerError,
	ErrCodeUnknownTransition:      http.StatusBadRequest,
	ErrCodeTransitionNotReachable: http.StatusConflict,
	ErrCodeTransitionUnavailable:  http.StatusUnprocessableEntity,
	ErrCodeDuplicateDataEntry:     http.StatusConflict,
	ErrCodeVersionConflict:        http.StatusConflict,
	ErrCodeNotEditable:            http.StatusConflict,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:      "internal error",
	ErrCodeBadRequest:    "bad request",
	ErrCodeNotFound:      "resource not found",
	ErrCodeConflict:      "resource conflict",
	ErrCodeValidation:    "validation failed",
	ErrCodeDatabaseError: "database error",
	ErrCodeTimeout:       "operation timed out",
	ErrCodeConfiguration: "configuration error",
	ErrCodeUnknown:       "unknown error",

	ErrCodePartyNotFound:     "party not found",
	ErrCodePeriodNotFound:    "reporting period not found",
	ErrCodeGroupNotFound:     "substance group not found",
	ErrCodeSubstanceNotFound: "substance not found",
	ErrCodeHistoryMissing:    "party has no history entry for period",

	ErrCodeRecomputeFailed:    "aggregation recompute failed",
	ErrCodeProdConsCorrupt:    "prodcons row is internally inconsistent",
	ErrCodeContributionAbsent: "submission contribution not present on row",

	ErrCodeUnknownBaselineType:  "unknown baseline type",
	ErrCodeBadSourcePeriodCount: "baseline function received wrong number of source periods",
	ErrCodeBaselineDependency:   "dependent baseline unavailable",

	ErrCodeUnknownLimitType: "unknown limit type",
	ErrCodeControlMeasure:   "control measure lookup failed",

	ErrCodeSubmissionNotFound:     "submission not found",
	ErrCodeUnknownWorkflow:        "no workflow registered for obligation",
	ErrCodeUnknownTransition:      "transition not defined in workflow",
	ErrCodeTransitionNotReachable: "transition not reachable from current state",
	ErrCodeTransitionUnavailable:  "transition guard condition not met",
	ErrCodeDuplicateDataEntry:     "a data-entry submission already exists for this actor type",
	ErrCodeVersionConflict:        "concurrent submission creation lost version race",
	ErrCodeNotEditable:            "submission is not in an editable state",
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

// ModuleForCode returns the module prefix of an ErrorCode
// ("COMMON", "REF", "AGG", "BSL", "LIM", "SUB").
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
