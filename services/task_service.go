package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"ain_oman_legal/models"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidTaskStatus = errors.New("invalid task status")
)

// TaskInput describes a unit of work on a case
type TaskInput struct {
	Title       string
	Description string
	AssigneeID  string
	Priority    string
	Stage       string
	DueDate     *time.Time
	WorkflowID  string
}

// TaskPatch updates a task in place
type TaskPatch struct {
	Title       *string
	Description *string
	AssigneeID  *string
	Priority    *string
	DueDate     *time.Time
}

// TaskFilters narrows List results
type TaskFilters struct {
	CaseID      string
	AssigneeID  string
	Status      string
	OverdueOnly bool
}

// TaskService manages case tasks; ids come from the AO-T- sequence
type TaskService struct {
	store *RecordStore
	seq   *SequenceAllocator
}

func NewTaskService(store *RecordStore, seq *SequenceAllocator) *TaskService {
	return &TaskService{store: store, seq: seq}
}

// Create adds a TODO task to an existing case
func (t *TaskService) Create(ctx context.Context, ac AuditContext, caseID string, in TaskInput) (*models.LegalTask, error) {
	var task models.LegalTask
	err := t.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		created, err := t.create(ctx, snap, ac, caseID, in)
		task = created
		return err
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// create runs inside an Update; WorkflowService reuses it to create several tasks in one write
func (t *TaskService) create(ctx context.Context, snap *Snapshot, ac AuditContext, caseID string, in TaskInput) (models.LegalTask, error) {
	c, err := snap.Case(caseID)
	if err != nil {
		return models.LegalTask{}, err
	}
	id, err := t.seq.Next(ctx, ac.TenantID, CounterKeyTask, TaskPrefix)
	if err != nil {
		return models.LegalTask{}, fmt.Errorf("failed to allocate task number: %w", err)
	}

	priority := in.Priority
	if !models.IsValidCasePriority(priority) {
		priority = models.CasePriorityMedium
	}
	stage := in.Stage
	if stage != "" && !models.IsValidCaseStage(stage) {
		stage = ""
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "Task " + id
	}

	now := t.store.Now()
	task := models.LegalTask{
		ID:          id,
		TenantID:    ac.TenantID,
		CaseID:      c.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   ac.ActorID,
		AssigneeID:  in.AssigneeID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Priority:    priority,
		Stage:       stage,
		DueDate:     utcPtr(in.DueDate),
		Status:      models.TaskStatusTodo,
		WorkflowID:  in.WorkflowID,
	}
	snap.AddTask(task)
	return task, t.store.LogAuditEvent(snap, ac, models.AuditActionCreate, models.EntityKindTask, task.ID, task.Title,
		"Task created on "+c.ID, nil, task)
}

// Update applies patch to a task
func (t *TaskService) Update(ctx context.Context, ac AuditContext, taskID string, patch TaskPatch) (*models.LegalTask, error) {
	return t.mutate(ctx, ac, taskID, func(snap *Snapshot, task *models.LegalTask) error {
		before := *task
		if patch.Title != nil {
			task.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			task.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.AssigneeID != nil {
			task.AssigneeID = *patch.AssigneeID
		}
		if patch.Priority != nil && models.IsValidCasePriority(*patch.Priority) {
			task.Priority = *patch.Priority
		}
		if patch.DueDate != nil {
			task.DueDate = utcPtr(patch.DueDate)
		}
		return t.store.LogAuditEvent(snap, ac, models.AuditActionUpdate, models.EntityKindTask, task.ID, task.Title,
			"Task updated", before, *task)
	})
}

// UpdateStatus moves a task to status. DONE stamps completedAt/By; leaving DONE clears them.
func (t *TaskService) UpdateStatus(ctx context.Context, ac AuditContext, taskID, status string) (*models.LegalTask, error) {
	if !models.IsValidTaskStatus(status) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTaskStatus, status)
	}
	return t.mutate(ctx, ac, taskID, func(snap *Snapshot, task *models.LegalTask) error {
		from := task.Status
		if from == status {
			return nil
		}
		task.Status = status
		if status == models.TaskStatusDone {
			now := t.store.Now()
			task.CompletedAt = &now
			task.CompletedBy = ac.ActorID
		} else {
			task.CompletedAt = nil
			task.CompletedBy = ""
		}
		return t.store.LogAuditEvent(snap, ac, models.AuditActionStatusChange, models.EntityKindTask, task.ID, task.Title,
			fmt.Sprintf("Task moved from %s to %s", from, status),
			map[string]string{"status": from}, map[string]string{"status": status})
	})
}

func (t *TaskService) mutate(ctx context.Context, ac AuditContext, taskID string, fn func(snap *Snapshot, task *models.LegalTask) error) (*models.LegalTask, error) {
	var result models.LegalTask
	err := t.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		task, err := snap.Task(taskID)
		if err != nil {
			return err
		}
		if err := fn(snap, task); err != nil {
			return err
		}
		task.UpdatedAt = t.store.Now()
		result = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a task
func (t *TaskService) Delete(ctx context.Context, ac AuditContext, taskID string) (*models.LegalTask, error) {
	var removed models.LegalTask
	err := t.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		task, err := snap.DeleteTask(taskID)
		if err != nil {
			return err
		}
		removed = task
		return t.store.LogAuditEvent(snap, ac, models.AuditActionDelete, models.EntityKindTask, task.ID, task.Title,
			"Task deleted", task, nil)
	})
	if err != nil {
		return nil, err
	}
	return &removed, nil
}

// Get returns one task
func (t *TaskService) Get(ctx context.Context, tenantID, taskID string) (*models.LegalTask, error) {
	var result models.LegalTask
	err := t.store.View(ctx, tenantID, func(snap *Snapshot) error {
		task, err := snap.Task(taskID)
		if err != nil {
			return err
		}
		result = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// List returns tasks matching filters, earliest due date first (undated last)
func (t *TaskService) List(ctx context.Context, tenantID string, filters TaskFilters) ([]models.LegalTask, error) {
	var out []models.LegalTask
	err := t.store.View(ctx, tenantID, func(snap *Snapshot) error {
		if filters.CaseID != "" {
			if _, err := snap.Case(filters.CaseID); err != nil {
				return err
			}
		}
		now := t.store.Now()
		out = snap.TasksWhere(func(task *models.LegalTask) bool {
			if filters.CaseID != "" && task.CaseID != filters.CaseID {
				return false
			}
			if filters.AssigneeID != "" && task.AssigneeID != filters.AssigneeID {
				return false
			}
			if filters.Status != "" && task.Status != filters.Status {
				return false
			}
			return !filters.OverdueOnly || task.IsOverdue(now)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DueDate, out[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Before(*b)
	})
	return out, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
