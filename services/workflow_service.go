package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"ain_oman_legal/models"

	"github.com/google/uuid"
)

var (
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrWorkflowBuiltIn  = errors.New("built-in workflow cannot be modified")
	ErrWorkflowNoSteps  = errors.New("workflow needs at least one step")
)

// DefaultWorkflow is the built-in rental dispute template. It is offered by
// every tenant but never written to the snapshot.
func DefaultWorkflow() models.LegalWorkflow {
	return models.LegalWorkflow{
		ID:          models.DefaultWorkflowID,
		Name:        "Rental dispute",
		CaseType:    models.CaseTypeRentalDispute,
		Description: "Standard handling of a landlord and tenant dispute",
		Steps: []models.WorkflowStep{
			{Title: "Collect lease agreement and payment records", Stage: models.CaseStageInvestigation, Priority: models.CasePriorityHigh, OffsetDays: 3},
			{Title: "Send formal notice to the counterparty", Stage: models.CaseStageNegotiation, Priority: models.CasePriorityMedium, OffsetDays: 7},
			{Title: "Attempt amicable settlement", Stage: models.CaseStageSettlement, Priority: models.CasePriorityMedium, OffsetDays: 21},
			{Title: "File claim with the rental disputes committee", Stage: models.CaseStageFiling, Priority: models.CasePriorityHigh, OffsetDays: 30},
			{Title: "Prepare hearing bundle", Stage: models.CaseStageHearing, Priority: models.CasePriorityHigh, OffsetDays: 45},
		},
	}
}

// WorkflowService stores task templates and applies them to cases
type WorkflowService struct {
	store *RecordStore
	tasks *TaskService
}

func NewWorkflowService(store *RecordStore, tasks *TaskService) *WorkflowService {
	return &WorkflowService{store: store, tasks: tasks}
}

// Save creates or replaces a workflow. An empty id gets a fresh uuid.
func (w *WorkflowService) Save(ctx context.Context, ac AuditContext, wf models.LegalWorkflow) (*models.LegalWorkflow, error) {
	if wf.ID == models.DefaultWorkflowID {
		return nil, ErrWorkflowBuiltIn
	}
	wf.Name = strings.TrimSpace(wf.Name)
	if wf.Name == "" {
		return nil, errors.New("workflow name is required")
	}
	if len(wf.Steps) == 0 {
		return nil, ErrWorkflowNoSteps
	}
	for i, step := range wf.Steps {
		if strings.TrimSpace(step.Title) == "" {
			return nil, fmt.Errorf("workflow step %d has no title", i+1)
		}
		if step.Stage != "" && !models.IsValidCaseStage(step.Stage) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCaseStage, step.Stage)
		}
		if step.OffsetDays < 0 {
			return nil, fmt.Errorf("workflow step %d has a negative offset", i+1)
		}
	}
	if wf.ID == "" {
		wf.ID = uuid.New().String()
	}
	wf.Steps = append([]models.WorkflowStep(nil), wf.Steps...)

	var saved models.LegalWorkflow
	err := w.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		now := w.store.Now()
		action := models.AuditActionCreate
		var before interface{}
		wf.TenantID = ac.TenantID
		wf.CreatedAt = now
		if existing, err := snap.Workflow(wf.ID); err == nil {
			action = models.AuditActionUpdate
			before = *existing
			wf.CreatedAt = existing.CreatedAt
		}
		wf.UpdatedAt = now
		snap.PutWorkflow(wf)
		saved = wf
		return w.store.LogAuditEvent(snap, ac, action, models.EntityKindWorkflow, wf.ID, wf.Name,
			"Workflow saved", before, wf)
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// List returns the built-in template followed by the tenant's workflows by name
func (w *WorkflowService) List(ctx context.Context, tenantID string) ([]models.LegalWorkflow, error) {
	var stored []models.LegalWorkflow
	err := w.store.View(ctx, tenantID, func(snap *Snapshot) error {
		stored = selectWhere(snap.Workflows, func(*models.LegalWorkflow) bool { return true })
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].Name < stored[j].Name })
	return append([]models.LegalWorkflow{DefaultWorkflow()}, stored...), nil
}

// Get returns a stored workflow or the built-in template
func (w *WorkflowService) Get(ctx context.Context, tenantID, id string) (*models.LegalWorkflow, error) {
	if id == models.DefaultWorkflowID {
		wf := DefaultWorkflow()
		return &wf, nil
	}
	var result models.LegalWorkflow
	err := w.store.View(ctx, tenantID, func(snap *Snapshot) error {
		wf, err := snap.Workflow(id)
		if err != nil {
			return err
		}
		result = *wf
		result.Steps = append([]models.WorkflowStep(nil), wf.Steps...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a stored workflow. Tasks already created from it are kept.
func (w *WorkflowService) Delete(ctx context.Context, ac AuditContext, id string) (*models.LegalWorkflow, error) {
	if id == models.DefaultWorkflowID {
		return nil, ErrWorkflowBuiltIn
	}
	var removed models.LegalWorkflow
	err := w.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		wf, err := snap.DeleteWorkflow(id)
		if err != nil {
			return err
		}
		removed = wf
		return w.store.LogAuditEvent(snap, ac, models.AuditActionDelete, models.EntityKindWorkflow, wf.ID, wf.Name,
			"Workflow deleted", wf, nil)
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

// Apply creates one task per workflow step on caseID, due offsetDays from now.
// All tasks are written in a single store update.
func (w *WorkflowService) Apply(ctx context.Context, ac AuditContext, workflowID, caseID, assigneeID string) ([]models.LegalTask, error) {
	wf, err := w.Get(ctx, ac.TenantID, workflowID)
	if err != nil {
		return nil, err
	}

	var created []models.LegalTask
	err = w.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		if _, err := snap.Case(caseID); err != nil {
			return err
		}
		now := w.store.Now()
		for _, step := range wf.Steps {
			due := now.Add(time.Duration(step.OffsetDays) * 24 * time.Hour)
			task, err := w.tasks.create(ctx, snap, ac, caseID, TaskInput{
				Title:      step.Title,
				AssigneeID: assigneeID,
				Priority:   step.Priority,
				Stage:      step.Stage,
				DueDate:    &due,
				WorkflowID: wf.ID,
			})
			if err != nil {
				return err
			}
			created = append(created, task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
