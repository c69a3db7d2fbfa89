package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"ain_oman_legal/models"

	"github.com/google/uuid"
)

var (
	ErrCaseNotFound              = errors.New("case not found")
	ErrStageHistoryNotFound      = errors.New("stage history entry not found")
	ErrStageHistoryAlreadyVoided = errors.New("stage history entry already voided")
	ErrInvalidCaseStatus         = errors.New("invalid case status")
	ErrInvalidCaseStage          = errors.New("invalid case stage")
	ErrInvalidCasePriority       = errors.New("invalid case priority")
	ErrInvalidCaseOutcome        = errors.New("invalid case outcome")
	ErrInvalidTransition         = errors.New("invalid case status transition")
	ErrCaseIDRequired            = errors.New("case id is required")
)

const maxCaseNumberRetries = 10

// CaseOptions are the optional fields accepted when a case is created.
// Missing values are defaulted, never rejected.
type CaseOptions struct {
	Type           string
	Priority       string
	Summary        string
	Parties        string
	CourtName      string
	CourtReference string
	ReliefSought   string
	Evidence       string
	ClaimAmount    float64
	Currency       string
	Notes          string
	PropertyID     string
	UnitID         string
	Tags           []string
	Extra          map[string]string
}

// CasePatch is a partial update. Nil fields are left untouched; Extra is merged key by key.
type CasePatch struct {
	Title          *string
	ClientID       *string
	LawyerID       *string
	Type           *string
	Priority       *string
	Status         *string
	Stage          *string
	Outcome        *string
	ClosedReason   *string
	Summary        *string
	Parties        *string
	CourtName      *string
	CourtReference *string
	ReliefSought   *string
	Evidence       *string
	ClaimAmount    *float64
	Currency       *string
	Notes          *string
	PropertyID     *string
	UnitID         *string
	Tags           []string
	Extra          map[string]string
}

// CaseFilters narrows List results
type CaseFilters struct {
	Status      string
	Stage       string
	Type        string
	Priority    string
	LawyerID    string
	ClientID    string
	SearchQuery string
}

func (f CaseFilters) matches(c *models.LegalCase) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Stage != "" && c.Stage != f.Stage {
		return false
	}
	if f.Type != "" && c.Type != f.Type {
		return false
	}
	if f.Priority != "" && c.Priority != f.Priority {
		return false
	}
	if f.LawyerID != "" && c.LawyerID != f.LawyerID {
		return false
	}
	if f.ClientID != "" && c.ClientID != f.ClientID {
		return false
	}
	if f.SearchQuery != "" {
		q := strings.ToLower(f.SearchQuery)
		if !strings.Contains(strings.ToLower(c.ID), q) &&
			!strings.Contains(strings.ToLower(c.Title), q) &&
			!strings.Contains(strings.ToLower(c.Summary), q) {
			return false
		}
	}
	return true
}

// CaseService runs the case lifecycle: creation, status and stage transitions,
// self-healing upserts and the case-scoped artifacts.
type CaseService struct {
	store     *RecordStore
	seq       *SequenceAllocator
	insights  InsightStrategy
	sanitizer *Sanitizer
	currency  string
}

// NewCaseService wires the lifecycle manager. insights and sanitizer may be nil.
func NewCaseService(store *RecordStore, seq *SequenceAllocator, insights InsightStrategy, sanitizer *Sanitizer, currency string) *CaseService {
	if insights == nil {
		insights = HeuristicInsights{}
	}
	if currency == "" {
		currency = "OMR"
	}
	return &CaseService{store: store, seq: seq, insights: insights, sanitizer: sanitizer, currency: currency}
}

// Create opens a new case with an allocator-issued id, status OPEN and stage INVESTIGATION
func (s *CaseService) Create(ctx context.Context, ac AuditContext, title, clientID, lawyerID string, opts CaseOptions) (*models.LegalCase, error) {
	if opts.Priority != "" && !models.IsValidCasePriority(opts.Priority) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCasePriority, opts.Priority)
	}

	var created models.LegalCase
	err := s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		id, err := s.nextCaseNumber(ctx, ac.TenantID, snap)
		if err != nil {
			return err
		}

		c := s.newCase(ac, id)
		c.Title = strings.TrimSpace(title)
		c.ClientID = clientID
		c.LawyerID = lawyerID
		s.applyOptions(&c, opts)
		if c.Title == "" {
			c.Title = "Untitled case " + id
		}

		snap.AddCase(c)
		created = c
		return s.store.LogAuditEvent(snap, ac, models.AuditActionCreate, models.EntityKindCase, c.ID, c.Title,
			"Case created", nil, c)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// nextCaseNumber draws ids until one is not already taken by an upserted case.
// Example: LEGAL-000042
func (s *CaseService) nextCaseNumber(ctx context.Context, tenantID string, snap *Snapshot) (string, error) {
	for i := 0; i < maxCaseNumberRetries; i++ {
		id, err := s.seq.Next(ctx, tenantID, CounterKeyCase, CasePrefix)
		if err != nil {
			return "", fmt.Errorf("failed to allocate case number: %w", err)
		}
		if _, err := snap.Case(id); errors.Is(err, ErrCaseNotFound) {
			return id, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique case number after %d retries", maxCaseNumberRetries)
}

func (s *CaseService) newCase(ac AuditContext, id string) models.LegalCase {
	now := s.store.Now()
	return models.LegalCase{
		ID:        id,
		TenantID:  ac.TenantID,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: ac.ActorID,
		UpdatedBy: ac.ActorID,
		Type:      models.CaseTypeOther,
		Priority:  models.CasePriorityMedium,
		Status:    models.CaseStatusOpen,
		Stage:     models.CaseStageInvestigation,
		Currency:  s.currency,
	}
}

func (s *CaseService) applyOptions(c *models.LegalCase, opts CaseOptions) {
	if opts.Type != "" {
		c.Type = strings.ToUpper(strings.TrimSpace(opts.Type))
	}
	if opts.Priority != "" {
		c.Priority = opts.Priority
	}
	if opts.Currency != "" {
		c.Currency = strings.ToUpper(opts.Currency)
	}
	c.Summary = s.sanitizer.Clean(opts.Summary)
	c.Parties = s.sanitizer.Clean(opts.Parties)
	c.CourtName = strings.TrimSpace(opts.CourtName)
	c.CourtReference = strings.TrimSpace(opts.CourtReference)
	c.ReliefSought = s.sanitizer.Clean(opts.ReliefSought)
	c.Evidence = s.sanitizer.Clean(opts.Evidence)
	c.ClaimAmount = opts.ClaimAmount
	c.Notes = s.sanitizer.Clean(opts.Notes)
	c.PropertyID = opts.PropertyID
	c.UnitID = opts.UnitID
	if len(opts.Tags) > 0 {
		c.Tags = append([]string(nil), opts.Tags...)
	}
	if len(opts.Extra) > 0 {
		c.Extra = make(map[string]string, len(opts.Extra))
		for k, v := range opts.Extra {
			c.Extra[k] = v
		}
	}
}

// Get returns one case
func (s *CaseService) Get(ctx context.Context, tenantID, id string) (*models.LegalCase, error) {
	var found models.LegalCase
	err := s.store.View(ctx, tenantID, func(snap *Snapshot) error {
		c, err := snap.Case(id)
		if err != nil {
			return err
		}
		found = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// List returns the tenant's cases matching filters, newest first
func (s *CaseService) List(ctx context.Context, tenantID string, filters CaseFilters) ([]models.LegalCase, error) {
	var cases []models.LegalCase
	err := s.store.View(ctx, tenantID, func(snap *Snapshot) error {
		cases = snap.CasesWhere(filters.matches)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(cases, func(i, j int) bool {
		return cases[i].CreatedAt.After(cases[j].CreatedAt)
	})
	return cases, nil
}

// UpdateStatus moves a case to status. CLOSED and RESOLVED stamp closedAt and the
// reason; other statuses reopen the case. ARCHIVED is final.
func (s *CaseService) UpdateStatus(ctx context.Context, ac AuditContext, id, status, reason string) (*models.LegalCase, error) {
	if !models.IsValidCaseStatus(status) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCaseStatus, status)
	}
	return s.mutateCase(ctx, ac, id, func(snap *Snapshot, c *models.LegalCase) error {
		before := statusValues(c)
		changed, err := s.applyStatus(c, status, reason)
		if err != nil || !changed {
			return err
		}
		return s.store.LogAuditEvent(snap, ac, models.AuditActionStatusChange, models.EntityKindCase, c.ID, c.Title,
			fmt.Sprintf("Status changed from %s to %s", before["status"], c.Status), before, statusValues(c))
	})
}

// Close sets status CLOSED
func (s *CaseService) Close(ctx context.Context, ac AuditContext, id, reason string) (*models.LegalCase, error) {
	return s.UpdateStatus(ctx, ac, id, models.CaseStatusClosed, reason)
}

// Resolve sets status RESOLVED and records the outcome when one is given
func (s *CaseService) Resolve(ctx context.Context, ac AuditContext, id, outcome, reason string) (*models.LegalCase, error) {
	if outcome != "" && !models.IsValidCaseOutcome(outcome) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCaseOutcome, outcome)
	}
	return s.mutateCase(ctx, ac, id, func(snap *Snapshot, c *models.LegalCase) error {
		before := statusValues(c)
		changed, err := s.applyStatus(c, models.CaseStatusResolved, reason)
		if err != nil {
			return err
		}
		if outcome != "" && c.Outcome != outcome {
			c.Outcome = outcome
			changed = true
		}
		if !changed {
			return nil
		}
		return s.store.LogAuditEvent(snap, ac, models.AuditActionStatusChange, models.EntityKindCase, c.ID, c.Title,
			"Case resolved", before, statusValues(c))
	})
}

// Archive sets status ARCHIVED. The stage is left alone.
func (s *CaseService) Archive(ctx context.Context, ac AuditContext, id string) (*models.LegalCase, error) {
	return s.UpdateStatus(ctx, ac, id, models.CaseStatusArchived, "")
}

// applyStatus reports whether anything changed
func (s *CaseService) applyStatus(c *models.LegalCase, status, reason string) (bool, error) {
	if c.Status == models.CaseStatusArchived && status != models.CaseStatusArchived {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, status)
	}

	wasClosing := models.IsClosingStatus(c.Status)
	switch {
	case models.IsClosingStatus(status):
		if c.Status == status && c.ClosedAt != nil && (reason == "" || reason == c.ClosedReason) {
			return false, nil
		}
		if !wasClosing || c.ClosedAt == nil {
			now := s.store.Now()
			c.ClosedAt = &now
		}
		if reason != "" {
			c.ClosedReason = reason
		}
	case status == models.CaseStatusArchived:
		if c.Status == status {
			return false, nil
		}
	default:
		if c.Status == status {
			return false, nil
		}
		c.ClosedAt = nil
		c.ClosedReason = ""
		c.Outcome = ""
	}
	c.Status = status
	return true, nil
}

func statusValues(c *models.LegalCase) map[string]interface{} {
	return map[string]interface{}{
		"status":        c.Status,
		"closed_at":     c.ClosedAt,
		"closed_reason": c.ClosedReason,
		"outcome":       c.Outcome,
	}
}

// UpdateStage moves a case to stage. Only an actual change appends a history row.
func (s *CaseService) UpdateStage(ctx context.Context, ac AuditContext, id, stage, note string) (*models.LegalCase, error) {
	if !models.IsValidCaseStage(stage) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCaseStage, stage)
	}
	return s.mutateCase(ctx, ac, id, func(snap *Snapshot, c *models.LegalCase) error {
		return s.applyStage(snap, ac, c, stage, note)
	})
}

func (s *CaseService) applyStage(snap *Snapshot, ac AuditContext, c *models.LegalCase, stage, note string) error {
	if c.Stage == stage {
		return nil
	}
	entry := models.CaseStageHistory{
		ID:        uuid.New().String(),
		TenantID:  c.TenantID,
		CaseID:    c.ID,
		FromStage: c.Stage,
		ToStage:   stage,
		ChangedAt: s.store.Now(),
		ChangedBy: ac.ActorID,
		Note:      s.sanitizer.Clean(note),
	}
	c.Stage = stage
	snap.AppendStageHistory(entry)
	return s.store.LogAuditEvent(snap, ac, models.AuditActionStageChange, models.EntityKindCase, c.ID, c.Title,
		fmt.Sprintf("Stage changed from %s to %s", entry.FromStage, entry.ToStage),
		map[string]string{"stage": entry.FromStage}, map[string]string{"stage": entry.ToStage})
}

// StageHistory returns a case's stage transitions in the order they happened,
// voided rows included. Rows outlive the case itself.
func (s *CaseService) StageHistory(ctx context.Context, tenantID, caseID string) ([]models.CaseStageHistory, error) {
	var rows []models.CaseStageHistory
	err := s.store.View(ctx, tenantID, func(snap *Snapshot) error {
		rows = snap.StageHistoryFor(caseID)
		return nil
	})
	return rows, err
}

// ActiveStageHistory returns the non-voided transitions of a case, oldest first.
// Rows of a deleted case are voided, so a case recreated under the same id starts a new chain.
func (s *CaseService) ActiveStageHistory(ctx context.Context, tenantID, caseID string) ([]models.CaseStageHistory, error) {
	var rows []models.CaseStageHistory
	err := s.store.View(ctx, tenantID, func(snap *Snapshot) error {
		rows = snap.ActiveStageHistoryFor(caseID)
		return nil
	})
	return rows, err
}

// VoidStageHistory flags a history row as voided. Rows are never removed.
func (s *CaseService) VoidStageHistory(ctx context.Context, ac AuditContext, historyID, reason string) (*models.CaseStageHistory, error) {
	var voided models.CaseStageHistory
	err := s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		h, err := snap.StageHistoryEntry(historyID)
		if err != nil {
			return err
		}
		if h.Voided {
			return ErrStageHistoryAlreadyVoided
		}
		now := s.store.Now()
		reason = strings.TrimSpace(reason)
		h.Voided = true
		h.VoidReason = &reason
		h.VoidedAt = &now
		h.VoidedBy = ac.ActorID
		voided = *h
		return s.store.LogAuditEvent(snap, ac, models.AuditActionVoid, models.EntityKindStage, h.ID, h.CaseID,
			"Stage history entry voided", nil, map[string]string{"void_reason": reason})
	})
	if err != nil {
		return nil, err
	}
	return &voided, nil
}

// Upsert merges patch into the case with id. A missing case is created with that id
// and the patch applied over the defaults, without drawing a new case number.
func (s *CaseService) Upsert(ctx context.Context, ac AuditContext, id string, patch CasePatch) (*models.LegalCase, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false, ErrCaseIDRequired
	}
	if err := validatePatch(patch); err != nil {
		return nil, false, err
	}

	var result models.LegalCase
	var created bool
	err := s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		existing, err := snap.Case(id)
		if errors.Is(err, ErrCaseNotFound) {
			c := s.newCase(ac, id)
			if err := s.applyPatch(snap, ac, &c, patch, false); err != nil {
				return err
			}
			if c.Title == "" {
				c.Title = "Untitled case " + id
			}
			snap.AddCase(c)
			result = c
			created = true
			return s.store.LogAuditEvent(snap, ac, models.AuditActionCreate, models.EntityKindCase, c.ID, c.Title,
				"Case created by upsert", nil, c)
		}
		if err != nil {
			return err
		}

		before := existing.Clone()
		if err := s.applyPatch(snap, ac, existing, patch, true); err != nil {
			return err
		}
		existing.UpdatedAt = s.store.Now()
		existing.UpdatedBy = ac.ActorID
		result = *existing
		return s.store.LogAuditEvent(snap, ac, models.AuditActionUpdate, models.EntityKindCase, existing.ID, existing.Title,
			"Case updated", before, existing)
	})
	if err != nil {
		return nil, false, err
	}
	return &result, created, nil
}

func validatePatch(p CasePatch) error {
	if p.Status != nil && !models.IsValidCaseStatus(*p.Status) {
		return fmt.Errorf("%w: %s", ErrInvalidCaseStatus, *p.Status)
	}
	if p.Stage != nil && !models.IsValidCaseStage(*p.Stage) {
		return fmt.Errorf("%w: %s", ErrInvalidCaseStage, *p.Stage)
	}
	if p.Priority != nil && !models.IsValidCasePriority(*p.Priority) {
		return fmt.Errorf("%w: %s", ErrInvalidCasePriority, *p.Priority)
	}
	if p.Outcome != nil && *p.Outcome != "" && !models.IsValidCaseOutcome(*p.Outcome) {
		return fmt.Errorf("%w: %s", ErrInvalidCaseOutcome, *p.Outcome)
	}
	return nil
}

// applyPatch merges p into c. For an existing case, status and stage go through the
// same transition rules as UpdateStatus and UpdateStage.
func (s *CaseService) applyPatch(snap *Snapshot, ac AuditContext, c *models.LegalCase, p CasePatch, existing bool) error {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setText := func(dst *string, src *string) {
		if src != nil {
			*dst = s.sanitizer.Clean(*src)
		}
	}

	setString(&c.Title, p.Title)
	setString(&c.ClientID, p.ClientID)
	setString(&c.LawyerID, p.LawyerID)
	if p.Type != nil {
		c.Type = strings.ToUpper(strings.TrimSpace(*p.Type))
	}
	setString(&c.Priority, p.Priority)
	setText(&c.Summary, p.Summary)
	setText(&c.Parties, p.Parties)
	setString(&c.CourtName, p.CourtName)
	setString(&c.CourtReference, p.CourtReference)
	setText(&c.ReliefSought, p.ReliefSought)
	setText(&c.Evidence, p.Evidence)
	if p.ClaimAmount != nil {
		c.ClaimAmount = *p.ClaimAmount
	}
	if p.Currency != nil {
		c.Currency = strings.ToUpper(strings.TrimSpace(*p.Currency))
	}
	setText(&c.Notes, p.Notes)
	setString(&c.PropertyID, p.PropertyID)
	setString(&c.UnitID, p.UnitID)
	if p.Tags != nil {
		c.Tags = append([]string(nil), p.Tags...)
	}
	if len(p.Extra) > 0 {
		if c.Extra == nil {
			c.Extra = make(map[string]string, len(p.Extra))
		}
		for k, v := range p.Extra {
			c.Extra[k] = v
		}
	}

	if p.Status != nil {
		reason := ""
		if p.ClosedReason != nil {
			reason = *p.ClosedReason
		}
		if _, err := s.applyStatus(c, *p.Status, reason); err != nil {
			return err
		}
	} else if p.ClosedReason != nil && models.IsClosingStatus(c.Status) {
		c.ClosedReason = *p.ClosedReason
	}
	if p.Outcome != nil {
		c.Outcome = *p.Outcome
	}

	if p.Stage != nil {
		if existing {
			return s.applyStage(snap, ac, c, *p.Stage, "")
		}
		c.Stage = *p.Stage
	}
	return nil
}

// Delete removes a case and its mutable artifacts. Stage history, transfers and
// audit entries stay so the record of what happened survives.
func (s *CaseService) Delete(ctx context.Context, ac AuditContext, id string) (*models.LegalCase, error) {
	var removed models.LegalCase
	var blobs []string
	err := s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		c, err := snap.DeleteCase(id)
		if err != nil {
			return err
		}
		removed = c
		for _, d := range snap.DocumentsFor(id) {
			if d.StorageKey != "" {
				blobs = append(blobs, d.StorageKey)
			}
		}
		cascade := snap.removeCaseArtifacts(id)
		voided := snap.voidStageHistoryFor(id, "case deleted", ac.ActorID, s.store.Now())
		return s.store.LogAuditEvent(snap, ac, models.AuditActionDelete, models.EntityKindCase, c.ID, c.Title,
			"Case deleted", c, map[string]interface{}{"removed": cascade, "stage_history_voided": voided})
	})
	if err != nil {
		return nil, err
	}
	s.removeBlobs(ctx, blobs)
	return &removed, nil
}

// removeBlobs deletes stored document content once the snapshot no longer points at it.
// A failure only leaves an orphan blob, so it is logged and not returned.
func (s *CaseService) removeBlobs(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.storage.Delete(ctx, key); err != nil {
			log.Printf("[STORE] Failed to delete document blob %s: %v", key, err)
		}
	}
}

// GenerateInsights computes an AIInsights snapshot and stores it on the case
func (s *CaseService) GenerateInsights(ctx context.Context, ac AuditContext, id string) (*models.AIInsights, error) {
	var insights models.AIInsights
	_, err := s.mutateCase(ctx, ac, id, func(snap *Snapshot, c *models.LegalCase) error {
		input := InsightInput{
			Case:         *c,
			Expenses:     snap.ExpensesFor(c.ID),
			Documents:    len(snap.DocumentsFor(c.ID)),
			StageHistory: snap.ActiveStageHistoryFor(c.ID),
			Now:          s.store.Now(),
			Currency:     c.Currency,
		}
		insights = s.insights.Insights(input)
		insights.GeneratedAt = input.Now
		c.AIInsights = &insights
		return s.store.LogAuditEvent(snap, ac, models.AuditActionGenerate, models.EntityKindCase, c.ID, c.Title,
			"AI insights generated by "+s.insights.Name(), nil, map[string]interface{}{
				"complexity":          insights.Complexity,
				"success_probability": insights.SuccessProbability,
			})
	})
	if err != nil {
		return nil, err
	}
	return &insights, nil
}

// mutateCase loads a case inside an Update and refreshes its update stamps when fn
// leaves it changed.
func (s *CaseService) mutateCase(ctx context.Context, ac AuditContext, id string, fn func(snap *Snapshot, c *models.LegalCase) error) (*models.LegalCase, error) {
	var result models.LegalCase
	err := s.store.Update(ctx, ac.TenantID, func(snap *Snapshot) error {
		c, err := snap.Case(id)
		if err != nil {
			return err
		}
		auditCount := len(snap.AuditLogs)
		if err := fn(snap, c); err != nil {
			return err
		}
		if len(snap.AuditLogs) > auditCount {
			c.UpdatedAt = s.store.Now()
			c.UpdatedBy = ac.ActorID
		}
		result = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
