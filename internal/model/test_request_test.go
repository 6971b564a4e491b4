package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestStatusTerminal(t *testing.T) {
	assert.True(t, RequestStatusCompleted.Terminal())
	assert.True(t, RequestStatusRejected.Terminal())
	assert.True(t, RequestStatusCancelled.Terminal())

	assert.False(t, RequestStatusPending.Terminal())
	assert.False(t, RequestStatusAssignedToLab.Terminal())
	assert.False(t, RequestStatusInProgress.Terminal())
	assert.False(t, RequestStatusPendingReview.Terminal())
	assert.False(t, RequestStatusNeedsRevision.Terminal())
}

func TestRequestStatusCanTransition(t *testing.T) {
	legal := []struct {
		from, to RequestStatus
	}{
		{RequestStatusPending, RequestStatusAssignedToLab},
		{RequestStatusAssignedToLab, RequestStatusInProgress},
		{RequestStatusInProgress, RequestStatusPendingReview},
		{RequestStatusPendingReview, RequestStatusCompleted},
		{RequestStatusPendingReview, RequestStatusRejected},
		{RequestStatusPendingReview, RequestStatusNeedsRevision},
		{RequestStatusNeedsRevision, RequestStatusPendingReview},
	}
	for _, tc := range legal {
		assert.True(t, tc.from.CanTransition(tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	illegal := []struct {
		from, to RequestStatus
	}{
		{RequestStatusPending, RequestStatusInProgress},
		{RequestStatusPending, RequestStatusCompleted},
		{RequestStatusAssignedToLab, RequestStatusPendingReview},
		{RequestStatusInProgress, RequestStatusCompleted},
		{RequestStatusCompleted, RequestStatusPendingReview},
		{RequestStatusRejected, RequestStatusPending},
		{RequestStatusCancelled, RequestStatusAssignedToLab},
		{RequestStatusNeedsRevision, RequestStatusCompleted},
	}
	for _, tc := range illegal {
		assert.False(t, tc.from.CanTransition(tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestCancellableFromEveryNonTerminalState(t *testing.T) {
	for _, s := range []RequestStatus{
		RequestStatusPending,
		RequestStatusAssignedToLab,
		RequestStatusInProgress,
		RequestStatusPendingReview,
		RequestStatusNeedsRevision,
	} {
		assert.True(t, s.CanTransition(RequestStatusCancelled), "cancel from %s", s)
	}
}
