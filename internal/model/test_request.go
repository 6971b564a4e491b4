package model

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestStatusPending       RequestStatus = "pending"
	RequestStatusAssignedToLab RequestStatus = "assigned_to_lab"
	RequestStatusInProgress    RequestStatus = "in_progress"
	RequestStatusPendingReview RequestStatus = "pending_doctor_review"
	RequestStatusCompleted     RequestStatus = "completed"
	RequestStatusRejected      RequestStatus = "rejected"
	RequestStatusNeedsRevision RequestStatus = "needs_revision"
	RequestStatusCancelled     RequestStatus = "cancelled"
)

func (s RequestStatus) Terminal() bool {
	switch s {
	case RequestStatusCompleted, RequestStatusRejected, RequestStatusCancelled:
		return true
	}
	return false
}

// requestTransitions is the forward edge set of the request state machine.
// needs_revision re-enters pending_doctor_review through result resubmission.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:       {RequestStatusAssignedToLab, RequestStatusCancelled},
	RequestStatusAssignedToLab: {RequestStatusInProgress, RequestStatusCancelled},
	RequestStatusInProgress:    {RequestStatusPendingReview, RequestStatusCancelled},
	RequestStatusPendingReview: {RequestStatusCompleted, RequestStatusRejected, RequestStatusNeedsRevision, RequestStatusCancelled},
	RequestStatusNeedsRevision: {RequestStatusPendingReview, RequestStatusCancelled},
}

// CanTransition reports whether moving from s to next is a legal edge.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	for _, t := range requestTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type TestRequest struct {
	Base
	RequestNumber   string        `db:"request_number" json:"request_number"`
	PatientID       uuid.UUID     `db:"patient_id" json:"patient_id"`
	TestID          uuid.UUID     `db:"test_id" json:"test_id"`
	DoctorID        uuid.UUID     `db:"doctor_id" json:"doctor_id"`
	LabTechnicianID *uuid.UUID    `db:"lab_technician_id" json:"lab_technician_id,omitempty"`
	Priority        Priority      `db:"priority" json:"priority"`
	Status          RequestStatus `db:"status" json:"status"`
	DoctorRemarks   string        `db:"doctor_remarks" json:"doctor_remarks,omitempty"`
	AssignedAt      *time.Time    `db:"assigned_at" json:"assigned_at,omitempty"`
	StartedAt       *time.Time    `db:"started_at" json:"started_at,omitempty"`
	CompletedAt     *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
}

type CreateTestOrderRequest struct {
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
	TestID    uuid.UUID `json:"test_id" binding:"required"`
	DoctorID  uuid.UUID `json:"doctor_id" binding:"required"`
	Priority  string    `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Remarks   string    `json:"remarks"`
}

type AssignTechnicianRequest struct {
	LabTechnicianID uuid.UUID `json:"lab_technician_id" binding:"required"`
}

type CancelRequestRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type TestRequestFilters struct {
	PatientID       uuid.UUID
	DoctorID        uuid.UUID
	LabTechnicianID uuid.UUID
	Status          RequestStatus
	Priority        Priority
	Pagination
}
