package model

import (
	"time"

	"github.com/google/uuid"
)

// PatientAccess is a short-lived capability granting one patient retrieval
// of one approved test result. Minted once per approval, never renewed.
type PatientAccess struct {
	Base
	PatientID    uuid.UUID `db:"patient_id" json:"patient_id"`
	TestResultID uuid.UUID `db:"test_result_id" json:"test_result_id"`
	AccessCode   string    `db:"access_code" json:"-"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
}

func (a *PatientAccess) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}
