package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"ain_oman_legal/models"

	"github.com/google/uuid"
)

var (
	ErrTransferNotFound          = errors.New("transfer not found")
	ErrInvalidTransferTransition = errors.New("invalid transfer transition")
	ErrTransferTargetRequired    = errors.New("transfer needs a target actor or institution")
)

// TransferRequest describes a handoff of a case
type TransferRequest struct {
	ToActorID     string
	ToInstitution string
	Reason        string
}

// TransferService runs the handoff workflow: PENDING then ACCEPTED or REJECTED,
// and ACCEPTED then COMPLETED.
type TransferService struct {
	store    *RecordStore
	seq      *SequenceAllocator
	notifier Notifier
}

// NewTransferService creates the workflow. notifier may be nil.
func NewTransferService(store *RecordStore, seq *SequenceAllocator, notifier Notifier) *TransferService {
	return &TransferService{store: store, seq: seq, notifier: notifier}
}

// Request opens a PENDING transfer with its own TRANSFER- number
func (t *TransferService) Request(ctx context.Context, ac AuditContext, caseID string, req TransferRequest) (*models.CaseTransfer, error) {
	req.ToActorID = strings.TrimSpace(req.ToActorID)
	req.ToInstitution = strings.TrimSpace(req.ToInstitution)
	if req.ToActorID == "" && req.ToInstitution == "" {
		return nil, ErrTransferTargetRequired
	}

	var transfer models.CaseTransfer
	var caseTitle string
	var target *models.Contact
	err := t.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		c, err := snap.Case(caseID)
		if err != nil {
			return err
		}
		number, err := t.seq.Next(ctx, ac.TenantID, CounterKeyTransfer, TransferPrefix)
		if err != nil {
			return fmt.Errorf("failed to allocate transfer number: %w", err)
		}

		transfer = models.CaseTransfer{
			ID:             uuid.New().String(),
			TenantID:       ac.TenantID,
			TransferNumber: number,
			CaseID:         c.ID,
			FromActorID:    c.LawyerID,
			ToActorID:      req.ToActorID,
			ToInstitution:  req.ToInstitution,
			Reason:         strings.TrimSpace(req.Reason),
			Status:         models.TransferStatusPending,
			RequestedAt:    t.store.Now(),
			RequestedBy:    ac.ActorID,
		}
		snap.AddTransfer(transfer)
		caseTitle = c.Title
		if contact, err := snap.Contact(req.ToActorID); err == nil {
			cp := *contact
			target = &cp
		}
		return t.store.LogAuditEvent(snap, ac, models.AuditActionTransfer, models.EntityKindTransfer, transfer.ID, transfer.TransferNumber,
			fmt.Sprintf("Transfer of %s requested", c.ID), nil, transfer)
	})
	if err != nil {
		return nil, err
	}

	t.notifyTarget(ctx, ac, &transfer, caseTitle, target)
	return &transfer, nil
}

// notifyTarget emails the transfer target when the directory has an address for it.
// Failures are logged only; the transfer already exists.
func (t *TransferService) notifyTarget(ctx context.Context, ac AuditContext, transfer *models.CaseTransfer, caseTitle string, target *models.Contact) {
	if t.notifier == nil || target == nil || target.Email == "" {
		return
	}
	email, err := BuildTransferRequestEmail(target.Email, TransferRequestEmailData{
		RecipientName:  target.Name,
		TransferNumber: transfer.TransferNumber,
		CaseID:         transfer.CaseID,
		CaseTitle:      caseTitle,
		Reason:         transfer.Reason,
		RequestedBy:    ac.ActorName,
	})
	if err == nil {
		err = t.notifier.Notify(ctx, email)
	}
	if err != nil {
		log.Printf("[NOTIFY] Failed to notify %s about transfer %s: %v", target.ID, transfer.TransferNumber, err)
	}
}

// Accept moves a PENDING transfer to ACCEPTED
func (t *TransferService) Accept(ctx context.Context, ac AuditContext, transferID string) (*models.CaseTransfer, error) {
	return t.transition(ctx, ac, transferID, models.TransferStatusAccepted, func(tr *models.CaseTransfer, snap *Snapshot) error {
		now := t.store.Now()
		tr.AcceptedAt = &now
		tr.AcceptedBy = ac.ActorID
		return nil
	})
}

// Reject moves a PENDING transfer to REJECTED
func (t *TransferService) Reject(ctx context.Context, ac AuditContext, transferID, reason string) (*models.CaseTransfer, error) {
	return t.transition(ctx, ac, transferID, models.TransferStatusRejected, func(tr *models.CaseTransfer, snap *Snapshot) error {
		now := t.store.Now()
		tr.RejectedAt = &now
		tr.RejectedBy = ac.ActorID
		tr.RejectionReason = strings.TrimSpace(reason)
		return nil
	})
}

// Complete finishes an ACCEPTED transfer and hands the case to the target actor
func (t *TransferService) Complete(ctx context.Context, ac AuditContext, transferID string) (*models.CaseTransfer, error) {
	return t.transition(ctx, ac, transferID, models.TransferStatusCompleted, func(tr *models.CaseTransfer, snap *Snapshot) error {
		now := t.store.Now()
		tr.CompletedAt = &now
		tr.CompletedBy = ac.ActorID

		if tr.ToActorID == "" {
			return nil
		}
		c, err := snap.Case(tr.CaseID)
		if errors.Is(err, ErrCaseNotFound) {
			// case deleted after the request; the transfer record still completes
			return nil
		}
		if err != nil {
			return err
		}
		before := c.LawyerID
		c.LawyerID = tr.ToActorID
		c.UpdatedAt = now
		c.UpdatedBy = ac.ActorID
		a, added := assignActor(t.store, snap, ac, c.ID, tr.ToActorID, models.AssignmentRoleResponsible)
		if added {
			if err := t.store.LogAuditEvent(snap, ac, models.AuditActionAssign, models.EntityKindAssignment, a.ID, c.Title,
				fmt.Sprintf("%s assigned as %s by transfer %s", a.ActorID, a.Role, tr.TransferNumber), nil, a); err != nil {
				return err
			}
		}
		return t.store.LogAuditEvent(snap, ac, models.AuditActionUpdate, models.EntityKindCase, c.ID, c.Title,
			"Lawyer changed by transfer "+tr.TransferNumber,
			map[string]string{"lawyer_id": before}, map[string]string{"lawyer_id": c.LawyerID})
	})
}

func (t *TransferService) transition(ctx context.Context, ac AuditContext, transferID, to string, apply func(tr *models.CaseTransfer, snap *Snapshot) error) (*models.CaseTransfer, error) {
	var result models.CaseTransfer
	err := t.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		tr, err := snap.Transfer(transferID)
		if err != nil {
			return err
		}
		if !models.CanTransferTo(tr.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransferTransition, tr.Status, to)
		}
		from := tr.Status
		tr.Status = to
		if err := apply(tr, snap); err != nil {
			return err
		}
		result = *tr
		return t.store.LogAuditEvent(snap, ac, models.AuditActionTransfer, models.EntityKindTransfer, tr.ID, tr.TransferNumber,
			fmt.Sprintf("Transfer %s moved from %s to %s", tr.TransferNumber, from, to),
			map[string]string{"status": from}, map[string]string{"status": to})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Get returns one transfer by id or transfer number
func (t *TransferService) Get(ctx context.Context, tenantID, transferID string) (*models.CaseTransfer, error) {
	var result models.CaseTransfer
	err := t.store.View(ctx, tenantID, func(snap *Snapshot) error {
		tr, err := snap.Transfer(transferID)
		if err != nil {
			return err
		}
		result = *tr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// List returns the transfers of a case, or all transfers when caseID is empty
func (t *TransferService) List(ctx context.Context, tenantID, caseID string) ([]models.CaseTransfer, error) {
	var out []models.CaseTransfer
	err := t.store.View(ctx, tenantID, func(snap *Snapshot) error {
		out = snap.TransfersFor(caseID)
		return nil
	})
	return out, err
}
