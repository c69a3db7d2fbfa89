package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ain_oman_legal/models"

	"github.com/stretchr/testify/require"
)

const testTenant = "tenant-muscat"

// testEnv wires every service over in-memory storage and a clock the test controls
type testEnv struct {
	ctx     context.Context
	storage *flakyStorage
	svc     *LegalServices
	ac      AuditContext

	mu  sync.Mutex
	now time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		ctx:     context.Background(),
		storage: &flakyStorage{ResourceStorage: NewMemoryStorage()},
		ac: AuditContext{
			TenantID:  testTenant,
			ActorID:   "USER-1",
			ActorName: "Fatma Al-Harthy",
			ActorRole: "lawyer",
		},
		now: time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC),
	}
	env.svc = NewLegalServices(env.storage, Options{Clock: env.clock})
	return env
}

func (e *testEnv) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

func (e *testEnv) createCase(t *testing.T, title string) *models.LegalCase {
	t.Helper()
	c, err := e.svc.Cases.Create(e.ctx, e.ac, title, "CLIENT-1", "LAWYER-1", CaseOptions{Type: models.CaseTypeRentalDispute})
	require.NoError(t, err)
	return c
}

func (e *testEnv) auditActions(t *testing.T, kind, id string) []models.AuditAction {
	t.Helper()
	entries, err := e.svc.Audit.GetResourceAuditHistory(e.ctx, e.ac.TenantID, kind, id)
	require.NoError(t, err)
	actions := make([]models.AuditAction, len(entries))
	for i, entry := range entries {
		actions[i] = entry.Action
	}
	return actions
}

var errStorageDown = errors.New("storage unavailable")

// flakyStorage fails snapshot writes while failWrites is set
type flakyStorage struct {
	ResourceStorage
	mu         sync.Mutex
	failWrites bool
	writes     int
}

func (f *flakyStorage) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrites = v
}

func (f *flakyStorage) Write(ctx context.Context, key string, data []byte) error {
	f.mu.Lock()
	fail := f.failWrites
	f.writes++
	f.mu.Unlock()
	if fail {
		return errStorageDown
	}
	return f.ResourceStorage.Write(ctx, key, data)
}
