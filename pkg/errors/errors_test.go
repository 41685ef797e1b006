package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesCodeAndMessage(t *testing.T) {
	err := New(ErrCodePartyNotFound, "party not found")
	require.NotNil(t, err)
	assert.Equal(t, ErrCodePartyNotFound, err.Code)
	assert.Contains(t, err.Error(), "REF_001")
	assert.Contains(t, err.Error(), "party not found")
}

func TestWrapPreservesInnerCode(t *testing.T) {
	inner := New(ErrCodeTransitionUnavailable, "guard failed")
	wrapped := Wrap(inner, ErrCodeUnknown, "executing transition")

	assert.Equal(t, ErrCodeTransitionUnavailable, GetCode(wrapped))
}

func TestWrapOverridesWithExplicitCode(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	wrapped := Wrap(inner, ErrCodeDatabaseError, "query failed")

	assert.Equal(t, ErrCodeDatabaseError, GetCode(wrapped))
	assert.ErrorIs(t, wrapped, inner)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "nothing"))
}

func TestIsNotFound(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want bool
	}{
		{ErrCodeNotFound, true},
		{ErrCodePartyNotFound, true},
		{ErrCodePeriodNotFound, true},
		{ErrCodeGroupNotFound, true},
		{ErrCodeSubstanceNotFound, true},
		{ErrCodeHistoryMissing, true},
		{ErrCodeSubmissionNotFound, true},
		{ErrCodeInternal, false},
		{ErrCodeDatabaseError, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			assert.Equal(t, tc.want, IsNotFound(New(tc.code, "x")))
		})
	}
}

func TestIsNotFoundThroughWrapping(t *testing.T) {
	inner := New(ErrCodeHistoryMissing, "no history")
	wrapped := fmt.Errorf("loading party: %w", inner)
	assert.True(t, IsNotFound(wrapped))
}

func TestIsValidationCoversStateMachineCodes(t *testing.T) {
	for _, code := range []ErrorCode{
		ErrCodeUnknownTransition,
		ErrCodeTransitionNotReachable,
		ErrCodeTransitionUnavailable,
		ErrCodeDuplicateDataEntry,
		ErrCodeVersionConflict,
	} {
		assert.True(t, IsValidation(New(code, "x")), "code %s", code)
	}
	assert.False(t, IsValidation(New(ErrCodeRecomputeFailed, "x")))
}

func TestHTTPStatusForCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatusForCode(ErrCodePartyNotFound))
	assert.Equal(t, http.StatusConflict, HTTPStatusForCode(ErrCodeVersionConflict))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusForCode(ErrorCode("NO_SUCH_CODE")))
}

func TestDistinctTransitionFailureCodes(t *testing.T) {
	unknown := UnknownTransition("no such transition")
	unreachable := TransitionNotReachable("wrong state")
	unavailable := TransitionUnavailable("guard failed")

	codes := map[ErrorCode]bool{
		unknown.Code:     true,
		unreachable.Code: true,
		unavailable.Code: true,
	}
	assert.Len(t, codes, 3, "the three transition failure modes must carry distinct codes")
}

func TestWithDetailAndCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Internal("persist failed").WithDetail("party 42").WithCause(cause)

	assert.Contains(t, err.Detail, "party 42")
	assert.ErrorIs(t, err, cause)
}
