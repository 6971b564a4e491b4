package model

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID `db:"id" json:"id"`
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   uuid.UUID `db:"entity_id" json:"entity_id"`
	Details    string    `db:"details" json:"details"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Audit actions recorded by the result lifecycle.
const (
	AuditSubmitResult  = "SUBMIT_TEST_RESULT"
	AuditResubmit      = "RESUBMIT_TEST_RESULT"
	AuditApproveResult = "APPROVE_TEST_RESULT"
	AuditRejectResult  = "REJECT_TEST_RESULT"
	AuditRevisionAsked = "TEST_RESULT_NEEDS_REVISION"
	AuditAccessResult  = "ACCESS_TEST_RESULT"
)
