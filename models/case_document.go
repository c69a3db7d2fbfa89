package models

import (
	"time"
)

// Document confidentiality constants
const (
	ConfidentialityPublic       = "PUBLIC"
	ConfidentialityInternal     = "INTERNAL"
	ConfidentialityConfidential = "CONFIDENTIAL"
	ConfidentialityPrivileged   = "PRIVILEGED"
)

// CaseDocument is the metadata of a document attached to a case.
// File bytes live with the upload layer; only the storage key is kept here.
type CaseDocument struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	CaseID    string    `json:"case_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// File metadata
	FileName   string `json:"file_name"`
	StorageKey string `json:"storage_key,omitempty"`
	FileSize   int64  `json:"file_size"`
	MimeType   string `json:"mime_type,omitempty"`

	// Document metadata
	DocumentType    string `json:"document_type,omitempty"` // e.g. "contract", "evidence", "court_order"
	Description     string `json:"description,omitempty"`
	Confidentiality string `json:"confidentiality"`

	UploadedBy string `json:"uploaded_by,omitempty"`
}

// IsValidConfidentiality checks if the confidentiality level is valid
func IsValidConfidentiality(level string) bool {
	switch level {
	case ConfidentialityPublic, ConfidentialityInternal, ConfidentialityConfidential, ConfidentialityPrivileged:
		return true
	}
	return false
}
