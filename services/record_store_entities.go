package services

import (
	"time"

	"ain_oman_legal/models"
)

// Generic helpers over the snapshot's ordered collections

func findByID[T any](items []T, id string, idOf func(*T) string) *T {
	for i := range items {
		if idOf(&items[i]) == id {
			return &items[i]
		}
	}
	return nil
}

func replaceByID[T any](items []T, item T, idOf func(*T) string) bool {
	id := idOf(&item)
	for i := range items {
		if idOf(&items[i]) == id {
			items[i] = item
			return true
		}
	}
	return false
}

func removeByID[T any](items []T, id string, idOf func(*T) string) ([]T, T, bool) {
	var zero T
	for i := range items {
		if idOf(&items[i]) == id {
			removed := items[i]
			return append(items[:i:i], items[i+1:]...), removed, true
		}
	}
	return items, zero, false
}

func removeWhere[T any](items []T, match func(*T) bool) ([]T, int) {
	kept := items[:0:0]
	removed := 0
	for i := range items {
		if match(&items[i]) {
			removed++
			continue
		}
		kept = append(kept, items[i])
	}
	return kept, removed
}

func selectWhere[T any](items []T, match func(*T) bool) []T {
	out := make([]T, 0)
	for i := range items {
		if match == nil || match(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}

func caseIDOf(c *models.LegalCase) string               { return c.ID }
func stageIDOf(h *models.CaseStageHistory) string       { return h.ID }
func assignmentIDOf(a *models.CaseAssignment) string    { return a.ID }
func documentIDOf(d *models.CaseDocument) string        { return d.ID }
func messageIDOf(m *models.CaseMessage) string          { return m.ID }
func expenseIDOf(e *models.Expense) string              { return e.ID }
func transferIDOf(t *models.CaseTransfer) string        { return t.ID }
func appointmentIDOf(a *models.LegalAppointment) string { return a.ID }
func taskIDOf(t *models.LegalTask) string               { return t.ID }
func contactIDOf(c *models.Contact) string              { return c.ID }
func workflowIDOf(w *models.LegalWorkflow) string       { return w.ID }
func predictionIDOf(p *models.CasePrediction) string    { return p.CaseID }

// Cases

// Case returns a pointer into the snapshot so callers inside Update can modify it in place
func (s *Snapshot) Case(id string) (*models.LegalCase, error) {
	if c := findByID(s.Cases, id, caseIDOf); c != nil {
		return c, nil
	}
	return nil, ErrCaseNotFound
}

func (s *Snapshot) AddCase(c models.LegalCase) {
	s.Cases = append(s.Cases, c)
}

func (s *Snapshot) UpdateCase(c models.LegalCase) error {
	if !replaceByID(s.Cases, c, caseIDOf) {
		return ErrCaseNotFound
	}
	return nil
}

func (s *Snapshot) DeleteCase(id string) (models.LegalCase, error) {
	var removed models.LegalCase
	var ok bool
	s.Cases, removed, ok = removeByID(s.Cases, id, caseIDOf)
	if !ok {
		return removed, ErrCaseNotFound
	}
	return removed, nil
}

func (s *Snapshot) CasesWhere(match func(*models.LegalCase) bool) []models.LegalCase {
	return selectWhere(s.Cases, match)
}

// Stage history (append and void only)

func (s *Snapshot) AppendStageHistory(h models.CaseStageHistory) {
	s.StageHistory = append(s.StageHistory, h)
}

func (s *Snapshot) StageHistoryEntry(id string) (*models.CaseStageHistory, error) {
	if h := findByID(s.StageHistory, id, stageIDOf); h != nil {
		return h, nil
	}
	return nil, ErrStageHistoryNotFound
}

func (s *Snapshot) StageHistoryFor(caseID string) []models.CaseStageHistory {
	return selectWhere(s.StageHistory, func(h *models.CaseStageHistory) bool { return h.CaseID == caseID })
}

// ActiveStageHistoryFor skips voided rows. Consecutive rows chain: each FromStage
// equals the previous ToStage.
func (s *Snapshot) ActiveStageHistoryFor(caseID string) []models.CaseStageHistory {
	return selectWhere(s.StageHistory, func(h *models.CaseStageHistory) bool { return h.CaseID == caseID && !h.Voided })
}

// voidStageHistoryFor voids every active row of a case and returns how many changed
func (s *Snapshot) voidStageHistoryFor(caseID, reason, actorID string, now time.Time) int {
	n := 0
	for i := range s.StageHistory {
		h := &s.StageHistory[i]
		if h.CaseID != caseID || h.Voided {
			continue
		}
		r := reason
		at := now
		h.Voided = true
		h.VoidReason = &r
		h.VoidedAt = &at
		h.VoidedBy = actorID
		n++
	}
	return n
}

// Assignments

func (s *Snapshot) AddAssignment(a models.CaseAssignment) {
	s.Assignments = append(s.Assignments, a)
}

func (s *Snapshot) Assignment(id string) (*models.CaseAssignment, error) {
	if a := findByID(s.Assignments, id, assignmentIDOf); a != nil {
		return a, nil
	}
	return nil, ErrAssignmentNotFound
}

func (s *Snapshot) DeleteAssignment(id string) (models.CaseAssignment, error) {
	var removed models.CaseAssignment
	var ok bool
	s.Assignments, removed, ok = removeByID(s.Assignments, id, assignmentIDOf)
	if !ok {
		return removed, ErrAssignmentNotFound
	}
	return removed, nil
}

func (s *Snapshot) AssignmentsFor(caseID string) []models.CaseAssignment {
	return selectWhere(s.Assignments, func(a *models.CaseAssignment) bool { return a.CaseID == caseID })
}

// Documents

func (s *Snapshot) AddDocument(d models.CaseDocument) {
	s.Documents = append(s.Documents, d)
}

func (s *Snapshot) Document(id string) (*models.CaseDocument, error) {
	if d := findByID(s.Documents, id, documentIDOf); d != nil {
		return d, nil
	}
	return nil, ErrDocumentNotFound
}

func (s *Snapshot) DeleteDocument(id string) (models.CaseDocument, error) {
	var removed models.CaseDocument
	var ok bool
	s.Documents, removed, ok = removeByID(s.Documents, id, documentIDOf)
	if !ok {
		return removed, ErrDocumentNotFound
	}
	return removed, nil
}

func (s *Snapshot) DocumentsFor(caseID string) []models.CaseDocument {
	return selectWhere(s.Documents, func(d *models.CaseDocument) bool { return d.CaseID == caseID })
}

// Messages

func (s *Snapshot) AddMessage(m models.CaseMessage) {
	s.Messages = append(s.Messages, m)
}

func (s *Snapshot) Message(id string) (*models.CaseMessage, error) {
	if m := findByID(s.Messages, id, messageIDOf); m != nil {
		return m, nil
	}
	return nil, ErrMessageNotFound
}

func (s *Snapshot) DeleteMessage(id string) (models.CaseMessage, error) {
	var removed models.CaseMessage
	var ok bool
	s.Messages, removed, ok = removeByID(s.Messages, id, messageIDOf)
	if !ok {
		return removed, ErrMessageNotFound
	}
	return removed, nil
}

func (s *Snapshot) MessagesFor(caseID string) []models.CaseMessage {
	return selectWhere(s.Messages, func(m *models.CaseMessage) bool { return m.CaseID == caseID })
}

// Expenses

func (s *Snapshot) AddExpense(e models.Expense) {
	s.Expenses = append(s.Expenses, e)
}

func (s *Snapshot) Expense(id string) (*models.Expense, error) {
	if e := findByID(s.Expenses, id, expenseIDOf); e != nil {
		return e, nil
	}
	return nil, ErrExpenseNotFound
}

func (s *Snapshot) DeleteExpense(id string) (models.Expense, error) {
	var removed models.Expense
	var ok bool
	s.Expenses, removed, ok = removeByID(s.Expenses, id, expenseIDOf)
	if !ok {
		return removed, ErrExpenseNotFound
	}
	return removed, nil
}

func (s *Snapshot) ExpensesFor(caseID string) []models.Expense {
	return selectWhere(s.Expenses, func(e *models.Expense) bool { return e.CaseID == caseID })
}

// Transfers (never deleted)

func (s *Snapshot) AddTransfer(t models.CaseTransfer) {
	s.Transfers = append(s.Transfers, t)
}

func (s *Snapshot) Transfer(id string) (*models.CaseTransfer, error) {
	if t := findByID(s.Transfers, id, transferIDOf); t != nil {
		return t, nil
	}
	// Transfers are also addressable by their number
	for i := range s.Transfers {
		if s.Transfers[i].TransferNumber == id {
			return &s.Transfers[i], nil
		}
	}
	return nil, ErrTransferNotFound
}

func (s *Snapshot) TransfersFor(caseID string) []models.CaseTransfer {
	return selectWhere(s.Transfers, func(t *models.CaseTransfer) bool { return caseID == "" || t.CaseID == caseID })
}

// Appointments

func (s *Snapshot) AddAppointment(a models.LegalAppointment) {
	s.Appointments = append(s.Appointments, a)
}

func (s *Snapshot) Appointment(id string) (*models.LegalAppointment, error) {
	if a := findByID(s.Appointments, id, appointmentIDOf); a != nil {
		return a, nil
	}
	return nil, ErrAppointmentNotFound
}

func (s *Snapshot) DeleteAppointment(id string) (models.LegalAppointment, error) {
	var removed models.LegalAppointment
	var ok bool
	s.Appointments, removed, ok = removeByID(s.Appointments, id, appointmentIDOf)
	if !ok {
		return removed, ErrAppointmentNotFound
	}
	return removed, nil
}

func (s *Snapshot) AppointmentsWhere(match func(*models.LegalAppointment) bool) []models.LegalAppointment {
	return selectWhere(s.Appointments, match)
}

// Tasks

func (s *Snapshot) AddTask(t models.LegalTask) {
	s.Tasks = append(s.Tasks, t)
}

func (s *Snapshot) Task(id string) (*models.LegalTask, error) {
	if t := findByID(s.Tasks, id, taskIDOf); t != nil {
		return t, nil
	}
	return nil, ErrTaskNotFound
}

func (s *Snapshot) DeleteTask(id string) (models.LegalTask, error) {
	var removed models.LegalTask
	var ok bool
	s.Tasks, removed, ok = removeByID(s.Tasks, id, taskIDOf)
	if !ok {
		return removed, ErrTaskNotFound
	}
	return removed, nil
}

func (s *Snapshot) TasksWhere(match func(*models.LegalTask) bool) []models.LegalTask {
	return selectWhere(s.Tasks, match)
}

// Contacts

func (s *Snapshot) AddContact(c models.Contact) {
	s.Contacts = append(s.Contacts, c)
}

func (s *Snapshot) Contact(id string) (*models.Contact, error) {
	if c := findByID(s.Contacts, id, contactIDOf); c != nil {
		return c, nil
	}
	return nil, ErrContactNotFound
}

func (s *Snapshot) DeleteContact(id string) (models.Contact, error) {
	var removed models.Contact
	var ok bool
	s.Contacts, removed, ok = removeByID(s.Contacts, id, contactIDOf)
	if !ok {
		return removed, ErrContactNotFound
	}
	return removed, nil
}

// Workflows

func (s *Snapshot) PutWorkflow(w models.LegalWorkflow) {
	if !replaceByID(s.Workflows, w, workflowIDOf) {
		s.Workflows = append(s.Workflows, w)
	}
}

func (s *Snapshot) Workflow(id string) (*models.LegalWorkflow, error) {
	if w := findByID(s.Workflows, id, workflowIDOf); w != nil {
		return w, nil
	}
	return nil, ErrWorkflowNotFound
}

func (s *Snapshot) DeleteWorkflow(id string) (models.LegalWorkflow, error) {
	var removed models.LegalWorkflow
	var ok bool
	s.Workflows, removed, ok = removeByID(s.Workflows, id, workflowIDOf)
	if !ok {
		return removed, ErrWorkflowNotFound
	}
	return removed, nil
}

// Audit log (append and read only)

func (s *Snapshot) AppendAudit(entry models.AuditLog) {
	s.AuditLogs = append(s.AuditLogs, entry)
}

// Derived caches

func (s *Snapshot) SetAnalytics(a models.LegalAnalytics) {
	s.Analytics = &a
}

// PutPrediction overwrites the cached prediction for p.CaseID
func (s *Snapshot) PutPrediction(p models.CasePrediction) {
	if !replaceByID(s.Predictions, p, predictionIDOf) {
		s.Predictions = append(s.Predictions, p)
	}
}

func (s *Snapshot) Prediction(caseID string) (*models.CasePrediction, error) {
	if p := findByID(s.Predictions, caseID, predictionIDOf); p != nil {
		return p, nil
	}
	return nil, ErrPredictionNotFound
}

func (s *Snapshot) DeletePrediction(caseID string) bool {
	var ok bool
	s.Predictions, _, ok = removeByID(s.Predictions, caseID, predictionIDOf)
	return ok
}

// removeCaseArtifacts drops every mutable artifact of a case. Stage history,
// transfers and audit entries are kept.
func (s *Snapshot) removeCaseArtifacts(caseID string) map[string]int {
	counts := make(map[string]int)
	s.Documents, counts["documents"] = removeWhere(s.Documents, func(d *models.CaseDocument) bool { return d.CaseID == caseID })
	s.Messages, counts["messages"] = removeWhere(s.Messages, func(m *models.CaseMessage) bool { return m.CaseID == caseID })
	s.Expenses, counts["expenses"] = removeWhere(s.Expenses, func(e *models.Expense) bool { return e.CaseID == caseID })
	s.Assignments, counts["assignments"] = removeWhere(s.Assignments, func(a *models.CaseAssignment) bool { return a.CaseID == caseID })
	s.Tasks, counts["tasks"] = removeWhere(s.Tasks, func(t *models.LegalTask) bool { return t.CaseID == caseID })
	s.Appointments, counts["appointments"] = removeWhere(s.Appointments, func(a *models.LegalAppointment) bool { return a.CaseID == caseID })
	if s.DeletePrediction(caseID) {
		counts["predictions"] = 1
	}
	return counts
}
