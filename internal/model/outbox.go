package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Event types published to role-group channels.
const (
	EventResultSubmitted      = "RESULT_SUBMITTED"
	EventResultApproved       = "RESULT_APPROVED"
	EventResultRejected       = "RESULT_REJECTED"
	EventResultRevisionNeeded = "RESULT_REVISION_NEEDED"
	EventResultAccessed       = "RESULT_ACCESSED"
	EventRequestCreated       = "REQUEST_CREATED"
	EventRequestAssigned      = "REQUEST_ASSIGNED"
	EventRequestStarted       = "REQUEST_STARTED"
	EventRequestCancelled     = "REQUEST_CANCELLED"
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
)

// Role-group channels for push fan-out.
const (
	ChannelDoctor        = "doctor"
	ChannelLabTechnician = "lab_technician"
	ChannelPatient       = "patient"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Channel      string          `db:"channel" json:"channel"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// NewOutboxEvent builds a pending event for channel with a JSON payload.
func NewOutboxEvent(eventType, channel string, payload any) (*OutboxEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{
		EventType: eventType,
		Channel:   channel,
		Payload:   raw,
		Status:    OutboxStatusPending,
	}, nil
}
