package model

import "github.com/google/uuid"

// Caller is the authenticated identity attached to a request by the auth
// middleware and consumed by services for relationship checks.
type Caller struct {
	UserID    uuid.UUID
	Role      Role
	Name      string
	Email     string
	PatientID *uuid.UUID
}
