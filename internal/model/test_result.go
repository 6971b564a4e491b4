package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ResultStatus string

const (
	ResultStatusDraft     ResultStatus = "draft"
	ResultStatusSubmitted ResultStatus = "submitted"
	ResultStatusApproved  ResultStatus = "approved"
	ResultStatusRejected  ResultStatus = "rejected"
	ResultStatusRevision  ResultStatus = "needs_revision"
	ResultStatusSent      ResultStatus = "sent"
)

type ResultType string

const (
	ResultTypeManual ResultType = "manual"
	ResultTypeFile   ResultType = "file"
)

// ResultParameter is one row of a structured result. Field order is part of
// the digest contract and must not change.
type ResultParameter struct {
	Parameter   string `json:"parameter"`
	Value       string `json:"value"`
	Unit        string `json:"unit"`
	NormalRange string `json:"normalRange"`
}

type TestResult struct {
	Base
	TestRequestID     uuid.UUID         `db:"test_request_id" json:"test_request_id"`
	ResultType        ResultType        `db:"result_type" json:"result_type"`
	ResultsJSON       json.RawMessage   `db:"results" json:"-"`
	Results           []ResultParameter `db:"-" json:"results,omitempty"`
	ResultFilePath    *string           `db:"result_file_path" json:"result_file_path,omitempty"`
	Interpretation    string            `db:"interpretation" json:"interpretation,omitempty"`
	Methodology       string            `db:"methodology" json:"methodology,omitempty"`
	Comments          string            `db:"comments" json:"comments,omitempty"`
	QualityControl    string            `db:"quality_control" json:"quality_control,omitempty"`
	ResultHash        string            `db:"result_hash" json:"result_hash"`
	Status            ResultStatus      `db:"status" json:"status"`
	LabTechnicianID   uuid.UUID         `db:"lab_technician_id" json:"lab_technician_id"`
	LabTechnicianName string            `db:"lab_technician_name" json:"lab_technician_name"`
	LabTechSignature  string            `db:"lab_tech_signature" json:"-"`
	SubmittedAt       time.Time         `db:"submitted_at" json:"submitted_at"`
	DoctorRemarks     string            `db:"doctor_remarks" json:"doctor_remarks,omitempty"`
	DoctorSignature   *string           `db:"doctor_signature" json:"-"`
	DoctorName        *string           `db:"doctor_name" json:"doctor_name,omitempty"`
	ApprovedBy        *uuid.UUID        `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt        *time.Time        `db:"approved_at" json:"approved_at,omitempty"`
	ArtifactPath      *string           `db:"artifact_path" json:"-"`
}

type SubmitResultRequest struct {
	TestRequestID  uuid.UUID         `json:"testRequestId" binding:"required"`
	Results        []ResultParameter `json:"results" binding:"required,min=1,dive"`
	Interpretation string            `json:"interpretation"`
	Methodology    string            `json:"methodology"`
	Comments       string            `json:"comments"`
	QualityControl string            `json:"qualityControl"`
	Signature      string            `json:"signature" binding:"required,b64sig"`
	SubmittedAt    time.Time         `json:"submittedAt" binding:"required"`
}

type SubmitFileResultRequest struct {
	TestRequestID  uuid.UUID `form:"testRequestId" binding:"required"`
	Interpretation string    `form:"interpretation"`
	Comments       string    `form:"comments"`
	QualityControl string    `form:"qualityControl"`
	Signature      string    `form:"signature" binding:"required,b64sig"`
	SubmittedAt    time.Time `form:"submittedAt" binding:"required"`
}

type ReviewResultRequest struct {
	ResultID  uuid.UUID `json:"resultId" binding:"required"`
	Status    string    `json:"status" binding:"required,oneof=approved rejected needs_revision"`
	Remarks   string    `json:"remarks"`
	Signature string    `json:"signature" binding:"omitempty,b64sig"`
}

type AccessResultRequest struct {
	AccessCode string `json:"accessCode" binding:"required"`
}

type ResultFilters struct {
	Status          ResultStatus
	PatientID       uuid.UUID
	DoctorID        uuid.UUID
	LabTechnicianID uuid.UUID
	DateFrom        time.Time
	DateTo          time.Time
	Pagination
}
