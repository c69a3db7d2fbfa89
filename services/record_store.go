package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"ain_oman_legal/models"
)

// ErrTenantMismatch means a snapshot resource belongs to a different tenant than the one requested
var ErrTenantMismatch = errors.New("snapshot tenant mismatch")

// Snapshot is the complete durable state of one tenant. It is persisted as a single
// JSON document and rewritten in full on every mutation.
type Snapshot struct {
	TenantID  string    `json:"tenant_id"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`

	Cases        []models.LegalCase        `json:"cases"`
	StageHistory []models.CaseStageHistory `json:"stage_history"`
	Assignments  []models.CaseAssignment   `json:"assignments"`
	Documents    []models.CaseDocument     `json:"documents"`
	Messages     []models.CaseMessage      `json:"messages"`
	Expenses     []models.Expense          `json:"expenses"`
	Transfers    []models.CaseTransfer     `json:"transfers"`
	Appointments []models.LegalAppointment `json:"appointments"`
	Tasks        []models.LegalTask        `json:"tasks"`
	Contacts     []models.Contact          `json:"contacts"`
	Workflows    []models.LegalWorkflow    `json:"workflows"`
	AuditLogs    []models.AuditLog         `json:"audit_logs"`

	Analytics   *models.LegalAnalytics  `json:"analytics,omitempty"`
	Predictions []models.CasePrediction `json:"predictions"`
}

// RecordStore owns every tenant snapshot. Mutations run against a private copy which
// replaces the live state only after it has been written to storage.
type RecordStore struct {
	mu      sync.Mutex
	storage ResourceStorage
	tenants map[string][]byte // last durable image per tenant
	now     func() time.Time
	metrics *Metrics
}

// StoreOption configures a RecordStore
type StoreOption func(*RecordStore)

// WithClock overrides the store clock (tests)
func WithClock(now func() time.Time) StoreOption {
	return func(s *RecordStore) { s.now = now }
}

// WithMetrics attaches prometheus collectors
func WithMetrics(m *Metrics) StoreOption {
	return func(s *RecordStore) { s.metrics = m }
}

// NewRecordStore creates a store over storage
func NewRecordStore(storage ResourceStorage, opts ...StoreOption) *RecordStore {
	s := &RecordStore{
		storage: storage,
		tenants: make(map[string][]byte),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store clock reading in UTC
func (s *RecordStore) Now() time.Time {
	return s.now().UTC()
}

// Load makes sure the tenant snapshot is in memory, seeding and persisting a default
// one when storage has none. It returns a copy; calling it again returns the same state.
func (s *RecordStore) Load(ctx context.Context, tenantID string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.ensureLoaded(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(data)
}

// Save rewrites the tenant's current in-memory snapshot to storage
func (s *RecordStore) Save(ctx context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.ensureLoaded(ctx, tenantID)
	if err != nil {
		return err
	}
	return s.write(ctx, tenantID, data)
}

// View runs fn against a copy of the tenant snapshot while holding the store lock,
// so fn never observes a half-applied mutation. Changes made by fn are discarded.
func (s *RecordStore) View(ctx context.Context, tenantID string, fn func(snap *Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.ensureLoaded(ctx, tenantID)
	if err != nil {
		return err
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		return err
	}
	return fn(snap)
}

// Update runs fn against a working copy of the tenant snapshot. If fn succeeds the
// copy is persisted and becomes the live state; if fn or the write fails nothing changes.
func (s *RecordStore) Update(ctx context.Context, tenantID string, fn func(snap *Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.ensureLoaded(ctx, tenantID)
	if err != nil {
		return err
	}
	working, err := decodeSnapshot(data)
	if err != nil {
		return err
	}
	if err := fn(working); err != nil {
		return err
	}

	working.Version++
	working.UpdatedAt = s.Now()
	next, err := json.Marshal(working)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := s.write(ctx, tenantID, next); err != nil {
		log.Printf("[STORE] Persist failed for tenant %s, keeping version %d: %v", tenantID, working.Version-1, err)
		return err
	}
	s.tenants[tenantID] = next
	return nil
}

// Tenants lists the tenants currently held in memory
func (s *RecordStore) Tenants() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.tenants))
	for id := range s.tenants {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ensureLoaded returns the tenant's durable image. Caller holds s.mu.
func (s *RecordStore) ensureLoaded(ctx context.Context, tenantID string) ([]byte, error) {
	if err := validateTenant(tenantID); err != nil {
		return nil, err
	}
	if data, ok := s.tenants[tenantID]; ok {
		return data, nil
	}

	data, err := s.storage.Read(ctx, SnapshotResourceKey(tenantID))
	switch {
	case errors.Is(err, ErrResourceNotFound):
		seed := newSeedSnapshot(tenantID, s.Now())
		data, err = json.Marshal(seed)
		if err != nil {
			return nil, fmt.Errorf("failed to encode seed snapshot: %w", err)
		}
		if err := s.write(ctx, tenantID, data); err != nil {
			return nil, err
		}
		log.Printf("[STORE] Seeded empty snapshot for tenant %s on %s", tenantID, s.storage.Name())
	case err != nil:
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	default:
		// Validate before caching so a corrupt resource is reported on every attempt
		snap, err := decodeSnapshot(data)
		if err != nil {
			return nil, err
		}
		if snap.TenantID != tenantID {
			return nil, fmt.Errorf("%w: resource holds tenant %q, expected %q", ErrTenantMismatch, snap.TenantID, tenantID)
		}
	}

	s.tenants[tenantID] = data
	return data, nil
}

func (s *RecordStore) write(ctx context.Context, tenantID string, data []byte) error {
	start := time.Now()
	err := s.storage.Write(ctx, SnapshotResourceKey(tenantID), data)
	s.metrics.persisted(start, err)
	if err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	return nil
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// newSeedSnapshot is the starting state of a tenant: empty collections plus one
// directory contact so bootstrap references resolve.
func newSeedSnapshot(tenantID string, now time.Time) *Snapshot {
	return &Snapshot{
		TenantID:     tenantID,
		UpdatedAt:    now,
		Cases:        []models.LegalCase{},
		StageHistory: []models.CaseStageHistory{},
		Assignments:  []models.CaseAssignment{},
		Documents:    []models.CaseDocument{},
		Messages:     []models.CaseMessage{},
		Expenses:     []models.Expense{},
		Transfers:    []models.CaseTransfer{},
		Appointments: []models.LegalAppointment{},
		Tasks:        []models.LegalTask{},
		Contacts: []models.Contact{{
			ID:        models.DefaultContactID,
			TenantID:  tenantID,
			CreatedAt: now,
			UpdatedAt: now,
			Kind:      models.ContactKindDepartment,
			Name:      "Legal Department",
			Active:    true,
		}},
		Workflows:   []models.LegalWorkflow{},
		AuditLogs:   []models.AuditLog{},
		Predictions: []models.CasePrediction{},
	}
}
