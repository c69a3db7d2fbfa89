package models

import "time"

// Contact kinds
const (
	ContactKindLawyer      = "LAWYER"
	ContactKindClient      = "CLIENT"
	ContactKindCourt       = "COURT"
	ContactKindInstitution = "INSTITUTION"
	ContactKindDepartment  = "DEPARTMENT"
)

// DefaultContactID is the seeded directory entry every fresh tenant store starts with
const DefaultContactID = "CONTACT-DEFAULT"

// Contact is an entry in the tenant's legal directory (lawyers, courts, clients)
type Contact struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Kind         string    `json:"kind"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Organization string    `json:"organization,omitempty"`
	Specialty    string    `json:"specialty,omitempty"`
	Active       bool      `json:"active"`
}
