package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"ain_oman_legal/models"
)

const MaxUploadSize = 10 * 1024 * 1024 // 10MB

var (
	ErrUploadTooLarge     = errors.New("file size exceeds maximum allowed size of 10MB")
	ErrUploadEmpty        = errors.New("uploaded file is empty")
	ErrUploadTypeRejected = errors.New("file type not allowed. Accepted formats: PDF, DOC, DOCX, TXT, JPG, PNG")
	ErrDocumentNoContent  = errors.New("document has no stored content")
)

var allowedExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".txt": true,
	".jpg": true, ".jpeg": true, ".png": true,
}

// ValidateDocumentUpload checks size and extension, and that a .pdf really is a PDF
func ValidateDocumentUpload(fileName string, content []byte) error {
	if len(content) == 0 {
		return ErrUploadEmpty
	}
	if len(content) > MaxUploadSize {
		return ErrUploadTooLarge
	}
	ext := strings.ToLower(path.Ext(fileName))
	if !allowedExtensions[ext] {
		return ErrUploadTypeRejected
	}
	// PDF files start with %PDF
	if ext == ".pdf" && (len(content) < 4 || string(content[:4]) != "%PDF") {
		return fmt.Errorf("file is not a valid PDF")
	}
	return nil
}

// documentStorageKey names the blob after a content hash and the upload time:
// documents/<hex tenant>/<hex case>/<hash>_<unix><ext>
func documentStorageKey(tenantID, caseID, fileName string, content []byte, unix int64) string {
	sum := sha256.Sum256(content)
	hashStr := hex.EncodeToString(sum[:])[:16] // Use first 16 chars
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("documents/%s/%s/%s_%d%s", keySegment(tenantID), keySegment(caseID), hashStr, unix, ext)
}

// UploadDocument stores the file bytes next to the snapshots and records the document
// on the case. The blob is written first; a failed metadata write leaves an orphan blob
// but never a document pointing at nothing.
func (s *CaseService) UploadDocument(ctx context.Context, ac AuditContext, caseID, fileName string, content []byte, in DocumentInput) (*models.CaseDocument, error) {
	fileName = path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if err := ValidateDocumentUpload(fileName, content); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, ac.TenantID, caseID); err != nil {
		return nil, err
	}

	key := documentStorageKey(ac.TenantID, caseID, fileName, content, s.store.Now().Unix())
	if err := s.store.storage.Write(ctx, key, content); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	in.FileName = fileName
	in.StorageKey = key
	in.FileSize = int64(len(content))
	if in.MimeType == "" {
		in.MimeType = http.DetectContentType(content)
	}
	return s.AddDocument(ctx, ac, caseID, in)
}

// DownloadDocument returns a document's metadata and stored bytes
func (s *CaseService) DownloadDocument(ctx context.Context, tenantID, documentID string) (*models.CaseDocument, []byte, error) {
	doc, err := s.GetDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, nil, err
	}
	if doc.StorageKey == "" {
		return doc, nil, ErrDocumentNoContent
	}
	content, err := s.store.storage.Read(ctx, doc.StorageKey)
	if errors.Is(err, ErrResourceNotFound) {
		return doc, nil, ErrDocumentNoContent
	}
	if err != nil {
		return doc, nil, fmt.Errorf("failed to read document %s: %w", doc.ID, err)
	}
	return doc, content, nil
}
