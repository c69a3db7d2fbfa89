package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"ain_oman_legal/models"

	"github.com/google/uuid"
)

var (
	ErrAssignmentNotFound      = errors.New("assignment not found")
	ErrDocumentNotFound        = errors.New("document not found")
	ErrMessageNotFound         = errors.New("message not found")
	ErrExpenseNotFound         = errors.New("expense not found")
	ErrInvalidAssignmentRole   = errors.New("invalid assignment role")
	ErrInvalidExpenseAmount    = errors.New("expense amount must be a finite non-negative number")
	ErrInvalidExpenseStatus    = errors.New("invalid expense status")
	ErrExpenseAlreadyVoided    = errors.New("expense already voided")
	ErrInvalidConfidentiality  = errors.New("invalid confidentiality level")
	ErrInvalidMessageType      = errors.New("invalid message type")
	ErrAssignmentActorRequired = errors.New("assignment actor is required")
)

// Assignments

// Assign binds actorID to a case with role (RESPONSIBLE when empty). Assigning the
// same actor and role twice returns the existing assignment.
func (s *CaseService) Assign(ctx context.Context, ac AuditContext, caseID, actorID, role string) (*models.CaseAssignment, error) {
	out, err := s.AssignBatch(ctx, ac, caseID, []string{actorID}, role)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// AssignBatch assigns several actors with the same role in one write
func (s *CaseService) AssignBatch(ctx context.Context, ac AuditContext, caseID string, actorIDs []string, role string) ([]models.CaseAssignment, error) {
	if role == "" {
		role = models.AssignmentRoleResponsible
	}
	if !models.IsValidAssignmentRole(role) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAssignmentRole, role)
	}
	if len(actorIDs) == 0 {
		return nil, ErrAssignmentActorRequired
	}

	var out []models.CaseAssignment
	err := s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		c, err := snap.Case(caseID)
		if err != nil {
			return err
		}
		for _, actorID := range actorIDs {
			actorID = strings.TrimSpace(actorID)
			if actorID == "" {
				return ErrAssignmentActorRequired
			}
			a, added := assignActor(s.store, snap, ac, c.ID, actorID, role)
			out = append(out, a)
			if !added {
				continue
			}
			if err := s.store.LogAuditEvent(snap, ac, models.AuditActionAssign, models.EntityKindAssignment, a.ID, c.Title,
				fmt.Sprintf("%s assigned as %s", actorID, role), nil, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// assignActor adds an assignment unless the actor already holds role on the case
func assignActor(store *RecordStore, snap *Snapshot, ac AuditContext, caseID, actorID, role string) (models.CaseAssignment, bool) {
	for _, existing := range snap.AssignmentsFor(caseID) {
		if existing.ActorID == actorID && existing.Role == role {
			return existing, false
		}
	}
	a := models.CaseAssignment{
		ID:         uuid.New().String(),
		TenantID:   ac.TenantID,
		CaseID:     caseID,
		ActorID:    actorID,
		Role:       role,
		AssignedAt: store.Now(),
		AssignedBy: ac.ActorID,
	}
	snap.AddAssignment(a)
	return a, true
}

// Unassign removes an assignment
func (s *CaseService) Unassign(ctx context.Context, ac AuditContext, assignmentID string) (*models.CaseAssignment, error) {
	var removed models.CaseAssignment
	err := s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		a, err := snap.DeleteAssignment(assignmentID)
		if err != nil {
			return err
		}
		removed = a
		return s.store.LogAuditEvent(snap, ac, models.AuditActionUnassign, models.EntityKindAssignment, a.ID, a.CaseID,
			fmt.Sprintf("%s unassigned", a.ActorID), a, nil)
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

// ListAssignments returns the assignments of a case
func (s *CaseService) ListAssignments(ctx context.Context, tenantID, caseID string) ([]models.CaseAssignment, error) {
	var out []models.CaseAssignment
	err := s.store.View(ctx, tenantID, func(snap *Snapshot) error {
		if _, err := snap.Case(caseID); err != nil {
			return err
		}
		out = snap.AssignmentsFor(caseID)
		return nil
	})
	return out, err
}

// Documents

// DocumentInput describes a document attached to a case. The file itself is stored
// by the upload layer; StorageKey points at it.
type DocumentInput struct {
	FileName        string
	StorageKey      string
	FileSize        int64
	MimeType        string
	DocumentType    string
	Description     string
	Confidentiality string
}

// AddDocument records document metadata on a case
func (s *CaseService) AddDocument(ctx context.Context, ac AuditContext, caseID string, in DocumentInput) (*models.CaseDocument, error) {
	if in.Confidentiality == "" {
		in.Confidentiality = models.ConfidentialityInternal
	}
	if !models.IsValidConfidentiality(in.Confidentiality) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfidentiality, in.Confidentiality)
	}

	var doc models.CaseDocument
	err := s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		c, err := snap.Case(caseID)
		if err != nil {
			return err
		}
		now := s.store.Now()
		doc = models.CaseDocument{
			ID:              uuid.New().String(),
			TenantID:        ac.TenantID,
			CaseID:          c.ID,
			CreatedAt:       now,
			UpdatedAt:       now,
			FileName:        strings.TrimSpace(in.FileName),
			StorageKey:      in.StorageKey,
			FileSize:        in.FileSize,
			MimeType:        in.MimeType,
			DocumentType:    in.DocumentType,
			Description:     s.sanitizer.Clean(in.Description),
			Confidentiality: in.Confidentiality,
			UploadedBy:      ac.ActorID,
		}
		snap.AddDocument(doc)
		return s.store.LogAuditEvent(snap, ac, models.AuditActionCreate, models.EntityKindDocument, doc.ID, doc.FileName,
			"Document added to "+c.ID, nil, doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// DocumentPatch updates document metadata in place
type DocumentPatch struct {
	FileName        *string
	DocumentType    *string
	Description     *string
	Confidentiality *string
}

// UpdateDocument applies patch to a document
func (s *CaseService) UpdateDocument(ctx context.Context, ac AuditContext, documentID string, patch DocumentPatch) (*models.CaseDocument, error) {
	if patch.Confidentiality != nil && !models.IsValidConfidentiality(*patch.Confidentiality) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfidentiality, *patch.Confidentiality)
	}

	var doc models.CaseDocument
	err := s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		d, err := snap.Document(documentID)
		if err != nil {
			return err
		}
		before := *d
		if patch.FileName != nil {
			d.FileName = strings.TrimSpace(*patch.FileName)
		}
		if patch.DocumentType != nil {
			d.DocumentType = *patch.DocumentType
		}
		if patch.Description != nil {
			d.Description = s.sanitizer.Clean(*patch.Description)
		}
		if patch.Confidentiality != nil {
			d.Confidentiality = *patch.Confidentiality
		}
		d.UpdatedAt = s.store.Now()
		doc = *d
		return s.store.LogAuditEvent(snap, ac, models.AuditActionUpdate, models.EntityKindDocument, d.ID, d.FileName,
			"Document updated", before, doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteDocument removes a document record
func (s *CaseService) DeleteDocument(ctx context.Context, ac AuditContext, documentID string) (*models.CaseDocument, error) {
	var removed models.CaseDocument
	err := s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		d, err := snap.DeleteDocument(documentID)
		if err != nil {
			return err
		}
		removed = d
		return s.store.LogAuditEvent(snap, ac, models.AuditActionDelete, models.EntityKindDocument, d.ID, d.FileName,
			"Document deleted", d, nil)
	})
	if err != nil {
		return nil, err
	}
	if removed.StorageKey != "" {
		s.removeBlobs(ctx, []string{removed.StorageKey})
	}
	return &removed, nil
}

// GetDocument returns one document
func (s *CaseService) GetDocument(ctx context.Context, tenantID, documentID string) (*models.CaseDocument, error) {
	var doc models.CaseDocument
	err := s.store.View(ctx, tenantID, func(snap *Snapshot) error {
		d, err := snap.Document(documentID)
		if err != nil {
			return err
		}
		doc = *d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns the documents of a case
func (s *CaseService) ListDocuments(ctx context.Context, tenantID, caseID string) ([]models.CaseDocument, error) {
	var out []models.CaseDocument
	err := s.store.View(ctx, tenantID, func(snap *Snapshot) error {
		if _, err := snap.Case(caseID); err != nil {
			return err
		}
		out = snap.DocumentsFor(caseID)
		return nil
	})
	return out, err
}

// Messages

// MessageInput is a communication logged against a case
type MessageInput struct {
	MessageType string
	Subject     string
	Body        string
	RecipientID string
}

// AddMessage logs a message on a case. Body is sanitized.
func (s *CaseService) AddMessage(ctx context.Context, ac AuditContext, caseID string, in MessageInput) (*models.CaseMessage, error) {
	if in.MessageType == "" {
		in.MessageType = models.MessageTypeNote
	}
	if !models.IsValidMessageType(in.MessageType) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMessageType, in.MessageType)
	}

	var msg models.CaseMessage
	err := s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		c, err := snap.Case(caseID)
		if err != nil {
			return err
		}
		now := s.store.Now()
		msg = models.CaseMessage{
			ID:          uuid.New().String(),
			TenantID:    ac.TenantID,
			CaseID:      c.ID,
			CreatedAt:   now,
			UpdatedAt:   now,
			MessageType: in.MessageType,
			Subject:     strings.TrimSpace(in.Subject),
			Body:        s.sanitizer.Clean(in.Body),
			SenderID:    ac.ActorID,
			RecipientID: in.RecipientID,
		}
		snap.AddMessage(msg)
		return s.store.LogAuditEvent(snap, ac, models.AuditActionCreate, models.EntityKindMessage, msg.ID, msg.Subject,
			"Message logged on "+c.ID, nil, msg)
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// UpdateMessage edits subject and body of a message
func (s *CaseService) UpdateMessage(ctx context.Context, ac AuditContext, messageID string, subject, body *string) (*models.CaseMessage, error) {
	var msg models.CaseMessage
	err := s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		m, err := snap.Message(messageID)
		if err != nil {
			return err
		}
		before := *m
		if subject != nil {
			m.Subject = strings.TrimSpace(*subject)
		}
		if body != nil {
			m.Body = s.sanitizer.Clean(*body)
		}
		m.UpdatedAt = s.store.Now()
		msg = *m
		return s.store.LogAuditEvent(snap, ac, models.AuditActionUpdate, models.EntityKindMessage, m.ID, m.Subject,
			"Message updated", before, msg)
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// DeleteMessage removes a message
func (s *CaseService) DeleteMessage(ctx context.Context, ac AuditContext, messageID string) (*models.CaseMessage, error) {
	var removed models.CaseMessage
	err := s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		m, err := snap.DeleteMessage(messageID)
		if err != nil {
			return err
		}
		removed = m
		return s.store.LogAuditEvent(snap, ac, models.AuditActionDelete, models.EntityKindMessage, m.ID, m.Subject,
			"Message deleted", m, nil)
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

// GetMessage returns one message
func (s *CaseService) GetMessage(ctx context.Context, tenantID, messageID string) (*models.CaseMessage, error) {
	var msg models.CaseMessage
	err := s.store.View(ctx, tenantID, func(snap *Snapshot) error {
		m, err := snap.Message(messageID)
		if err != nil {
			return err
		}
		msg = *m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages returns the messages of a case in the order they were logged
func (s *CaseService) ListMessages(ctx context.Context, tenantID, caseID string) ([]models.CaseMessage, error) {
	var out []models.CaseMessage
	err := s.store.View(ctx, tenantID, func(snap *Snapshot) error {
		if _, err := snap.Case(caseID); err != nil {
			return err
		}
		out = snap.MessagesFor(caseID)
		return nil
	})
	return out, err
}

// Expenses

// ExpenseInput records a cost or billed fee on a case
type ExpenseInput struct {
	Category    string
	Description string
	Amount      float64
	Currency    string
	IncurredAt  time.Time
}

// AddExpense records an expense in PENDING status
func (s *CaseService) AddExpense(ctx context.Context, ac AuditContext, caseID string, in ExpenseInput) (*models.Expense, error) {
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}
	if in.Category == "" || !models.IsValidExpenseCategory(in.Category) {
		in.Category = models.ExpenseCategoryOther
	}

	var exp models.Expense
	err := s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		c, err := snap.Case(caseID)
		if err != nil {
			return err
		}
		now := s.store.Now()
		incurred := in.IncurredAt
		if incurred.IsZero() {
			incurred = now
		}
		currency := strings.ToUpper(in.Currency)
		if currency == "" {
			currency = c.Currency
		}
		exp = models.Expense{
			ID:          uuid.New().String(),
			TenantID:    ac.TenantID,
			CaseID:      c.ID,
			CreatedAt:   now,
			UpdatedAt:   now,
			Category:    in.Category,
			Description: s.sanitizer.Clean(in.Description),
			Amount:      in.Amount,
			Currency:    currency,
			IncurredAt:  incurred.UTC(),
			Status:      models.ExpenseStatusPending,
			RecordedBy:  ac.ActorID,
		}
		snap.AddExpense(exp)
		return s.store.LogAuditEvent(snap, ac, models.AuditActionCreate, models.EntityKindExpense, exp.ID, exp.Description,
			fmt.Sprintf("%s expense of %.3f %s added to %s", exp.Category, exp.Amount, exp.Currency, c.ID), nil, exp)
	})
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

// ExpensePatch updates an expense in place
type ExpensePatch struct {
	Category    *string
	Description *string
	Amount      *float64
	Status      *string
}

// UpdateExpense applies patch. Moving to APPROVED stamps approvedAt/By.
func (s *CaseService) UpdateExpense(ctx context.Context, ac AuditContext, expenseID string, patch ExpensePatch) (*models.Expense, error) {
	if patch.Amount != nil {
		if err := validateAmount(*patch.Amount); err != nil {
			return nil, err
		}
	}
	if patch.Status != nil && !models.IsValidExpenseStatus(*patch.Status) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidExpenseStatus, *patch.Status)
	}

	var exp models.Expense
	err := s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		e, err := snap.Expense(expenseID)
		if err != nil {
			return err
		}
		before := *e
		if patch.Category != nil && models.IsValidExpenseCategory(*patch.Category) {
			e.Category = *patch.Category
		}
		if patch.Description != nil {
			e.Description = s.sanitizer.Clean(*patch.Description)
		}
		if patch.Amount != nil {
			e.Amount = *patch.Amount
		}
		if patch.Status != nil && *patch.Status != e.Status {
			e.Status = *patch.Status
			if e.Status == models.ExpenseStatusApproved {
				now := s.store.Now()
				e.ApprovedAt = &now
				e.ApprovedBy = ac.ActorID
			}
		}
		e.UpdatedAt = s.store.Now()
		exp = *e
		return s.store.LogAuditEvent(snap, ac, models.AuditActionUpdate, models.EntityKindExpense, e.ID, e.Description,
			"Expense updated", before, exp)
	})
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

// VoidExpense keeps the expense on record but excludes it from every total
func (s *CaseService) VoidExpense(ctx context.Context, ac AuditContext, expenseID, reason string) (*models.Expense, error) {
	var exp models.Expense
	err := s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		e, err := snap.Expense(expenseID)
		if err != nil {
			return err
		}
		if e.Voided {
			return ErrExpenseAlreadyVoided
		}
		reason = strings.TrimSpace(reason)
		e.Voided = true
		e.VoidReason = &reason
		e.UpdatedAt = s.store.Now()
		exp = *e
		return s.store.LogAuditEvent(snap, ac, models.AuditActionVoid, models.EntityKindExpense, e.ID, e.Description,
			"Expense voided", nil, map[string]string{"void_reason": reason})
	})
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

// DeleteExpense removes an expense
func (s *CaseService) DeleteExpense(ctx context.Context, ac AuditContext, expenseID string) (*models.Expense, error) {
	var removed models.Expense
	err := s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		e, err := snap.DeleteExpense(expenseID)
		if err != nil {
			return err
		}
		removed = e
		return s.store.LogAuditEvent(snap, ac, models.AuditActionDelete, models.EntityKindExpense, e.ID, e.Description,
			"Expense deleted", e, nil)
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

// GetExpense returns one expense
func (s *CaseService) GetExpense(ctx context.Context, tenantID, expenseID string) (*models.Expense, error) {
	var exp models.Expense
	err := s.store.View(ctx, tenantID, func(snap *Snapshot) error {
		e, err := snap.Expense(expenseID)
		if err != nil {
			return err
		}
		exp = *e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

// ListExpenses returns the expenses of a case, voided ones included
func (s *CaseService) ListExpenses(ctx context.Context, tenantID, caseID string) ([]models.Expense, error) {
	var out []models.Expense
	err := s.store.View(ctx, tenantID, func(snap *Snapshot) error {
		if _, err := snap.Case(caseID); err != nil {
			return err
		}
		out = snap.ExpensesFor(caseID)
		return nil
	})
	return out, err
}

func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidExpenseAmount, amount)
	}
	return nil
}
