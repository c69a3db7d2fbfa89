package services

import (
	"context"
	"testing"
	"time"

	"ain_oman_legal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordStoreLoadSeeds(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store := NewRecordStore(storage, WithClock(func() time.Time { return now }))

	snap, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", snap.TenantID)
	assert.Empty(t, snap.Cases)
	assert.NotNil(t, snap.Cases)
	assert.Empty(t, snap.AuditLogs)
	assert.Nil(t, snap.Analytics)
	require.Len(t, snap.Contacts, 1)
	assert.Equal(t, models.DefaultContactID, snap.Contacts[0].ID)
	assert.Equal(t, "Legal Department", snap.Contacts[0].Name)

	// The seed is durable
	data, err := storage.Read(ctx, SnapshotResourceKey("t1"))
	require.NoError(t, err)
	assert.Contains(t, string(data), models.DefaultContactID)

	again, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, snap, again)

	// A second store over the same storage sees the same state
	other, err := NewRecordStore(storage).Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, snap.Contacts, other.Contacts)

	assert.Equal(t, []string{"t1"}, store.Tenants())
}

func TestRecordStoreUpdatePersistsAndVersions(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	store := NewRecordStore(storage)

	err := store.Update(ctx, "t1", func(snap *Snapshot) error {
		snap.AddCase(models.LegalCase{ID: "LEGAL-000001", Title: "Lease"})
		return nil
	})
	require.NoError(t, err)

	snap, err := NewRecordStore(storage).Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version)
	require.Len(t, snap.Cases, 1)
	assert.Equal(t, "Lease", snap.Cases[0].Title)
}

func TestRecordStoreRollbackOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	storage := &flakyStorage{ResourceStorage: NewMemoryStorage()}
	store := NewRecordStore(storage)
	_, err := store.Load(ctx, "t1")
	require.NoError(t, err)

	storage.setFailing(true)
	err = store.Update(ctx, "t1", func(snap *Snapshot) error {
		snap.AddCase(models.LegalCase{ID: "LEGAL-000001"})
		return nil
	})
	assert.ErrorIs(t, err, errStorageDown)

	snap, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, snap.Cases, "failed write must not leak into memory")
	assert.Equal(t, int64(0), snap.Version)

	storage.setFailing(false)
	require.NoError(t, store.Update(ctx, "t1", func(snap *Snapshot) error {
		snap.AddCase(models.LegalCase{ID: "LEGAL-000001"})
		return nil
	}))
	snap, err = store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, snap.Cases, 1)
	assert.Equal(t, int64(1), snap.Version)
}

func TestRecordStoreFnErrorDiscardsChanges(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore(NewMemoryStorage())

	err := store.Update(ctx, "t1", func(snap *Snapshot) error {
		snap.AddCase(models.LegalCase{ID: "LEGAL-000001"})
		return ErrInvalidTransition
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	snap, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, snap.Cases)
}

func TestRecordStoreViewIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewRecordStore(NewMemoryStorage())
	require.NoError(t, store.Update(ctx, "t1", func(snap *Snapshot) error {
		snap.AddCase(models.LegalCase{ID: "LEGAL-000001", Title: "Original", Extra: map[string]string{"k": "v"}})
		return nil
	}))

	require.NoError(t, store.View(ctx, "t1", func(snap *Snapshot) error {
		c, err := snap.Case("LEGAL-000001")
		require.NoError(t, err)
		c.Title = "Mutated"
		c.Extra["k"] = "changed"
		return nil
	}))

	snap, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Original", snap.Cases[0].Title)
	assert.Equal(t, "v", snap.Cases[0].Extra["k"])

	// Loaded snapshots are copies too
	snap.Cases[0].Title = "Also mutated"
	again, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Cases[0].Title)
}

func TestRecordStoreCorruptResource(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.Write(ctx, SnapshotResourceKey("t1"), []byte("{not json")))

	store := NewRecordStore(storage)
	_, err := store.Load(ctx, "t1")
	assert.Error(t, err)
	assert.Empty(t, store.Tenants())
}

func TestRecordStoreTenantsWithSimilarIDsStayApart(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	svc := NewLegalServices(storage, Options{})

	a, err := svc.Cases.Create(ctx, SystemAuditContext("acme/x", ""), "Tenant A case", "", "", CaseOptions{})
	require.NoError(t, err)
	b, err := svc.Cases.Create(ctx, SystemAuditContext("acme_x", ""), "Tenant B case", "", "", CaseOptions{})
	require.NoError(t, err)
	assert.Equal(t, "LEGAL-000001", a.ID)
	assert.Equal(t, "LEGAL-000001", b.ID, "each tenant has its own counter")

	// Fresh services over the same storage, as after a restart
	restarted := NewLegalServices(storage, Options{})
	for tenant, title := range map[string]string{"acme/x": "Tenant A case", "acme_x": "Tenant B case"} {
		snap, err := restarted.Store.Load(ctx, tenant)
		require.NoError(t, err)
		assert.Equal(t, tenant, snap.TenantID)
		require.Len(t, snap.Cases, 1, tenant)
		assert.Equal(t, title, snap.Cases[0].Title)
		assert.Equal(t, tenant, snap.Cases[0].TenantID)
	}

	next, err := restarted.Sequence.Peek(ctx, "acme/x", CounterKeyCase, CasePrefix)
	require.NoError(t, err)
	assert.Equal(t, "LEGAL-000002", next)
}

func TestRecordStoreRejectsBlankTenant(t *testing.T) {
	ctx := context.Background()
	storage := &flakyStorage{ResourceStorage: NewMemoryStorage()}
	store := NewRecordStore(storage)

	_, err := store.Load(ctx, "")
	assert.ErrorIs(t, err, ErrTenantRequired)
	err = store.Update(ctx, "  ", func(*Snapshot) error { return nil })
	assert.ErrorIs(t, err, ErrTenantRequired)
	assert.Equal(t, 0, storage.writes)
	assert.Empty(t, store.Tenants())

	_, err = NewSequenceAllocator(storage, nil).Next(ctx, "", CounterKeyCase, CasePrefix)
	assert.ErrorIs(t, err, ErrTenantRequired)
}

func TestRecordStoreRefusesForeignSnapshot(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	data, err := storage.Read(ctx, SnapshotResourceKey("t1"))
	assert.ErrorIs(t, err, ErrResourceNotFound)

	_, err = NewRecordStore(storage).Load(ctx, "t2")
	require.NoError(t, err)
	data, err = storage.Read(ctx, SnapshotResourceKey("t2"))
	require.NoError(t, err)
	require.NoError(t, storage.Write(ctx, SnapshotResourceKey("t1"), data))

	store := NewRecordStore(storage)
	_, err = store.Load(ctx, "t1")
	assert.ErrorIs(t, err, ErrTenantMismatch)
	assert.Empty(t, store.Tenants())
}

func TestRecordStoreSave(t *testing.T) {
	ctx := context.Background()
	storage := &flakyStorage{ResourceStorage: NewMemoryStorage()}
	store := NewRecordStore(storage)

	require.NoError(t, store.Save(ctx, "t1"))
	assert.Equal(t, 2, storage.writes) // seed, then the explicit save

	storage.setFailing(true)
	assert.ErrorIs(t, store.Save(ctx, "t1"), errStorageDown)
}

func TestSnapshotAccessors(t *testing.T) {
	snap := newSeedSnapshot("t1", time.Now())

	snap.AddCase(models.LegalCase{ID: "A"})
	snap.AddCase(models.LegalCase{ID: "B"})
	require.NoError(t, snap.UpdateCase(models.LegalCase{ID: "A", Title: "renamed"}))
	assert.ErrorIs(t, snap.UpdateCase(models.LegalCase{ID: "Z"}), ErrCaseNotFound)

	c, err := snap.Case("A")
	require.NoError(t, err)
	assert.Equal(t, "renamed", c.Title)

	removed, err := snap.DeleteCase("A")
	require.NoError(t, err)
	assert.Equal(t, "A", removed.ID)
	_, err = snap.DeleteCase("A")
	assert.ErrorIs(t, err, ErrCaseNotFound)

	snap.AddExpense(models.Expense{ID: "E1", CaseID: "B"})
	snap.AddExpense(models.Expense{ID: "E2", CaseID: "C"})
	assert.Len(t, snap.ExpensesFor("B"), 1)

	snap.AddTransfer(models.CaseTransfer{ID: "uuid-1", TransferNumber: "TRANSFER-000001", CaseID: "B"})
	tr, err := snap.Transfer("TRANSFER-000001")
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", tr.ID)
	assert.Len(t, snap.TransfersFor(""), 1)

	snap.PutPrediction(models.CasePrediction{CaseID: "B", Confidence: 0.1})
	snap.PutPrediction(models.CasePrediction{CaseID: "B", Confidence: 0.9})
	require.Len(t, snap.Predictions, 1)
	p, err := snap.Prediction("B")
	require.NoError(t, err)
	assert.Equal(t, 0.9, p.Confidence)

	counts := snap.removeCaseArtifacts("B")
	assert.Equal(t, 1, counts["expenses"])
	assert.Empty(t, snap.ExpensesFor("B"))
	assert.Len(t, snap.Expenses, 1)
	_, err = snap.Prediction("B")
	assert.ErrorIs(t, err, ErrPredictionNotFound)
	assert.Len(t, snap.Transfers, 1, "transfers are history")
}
