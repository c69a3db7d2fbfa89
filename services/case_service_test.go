package services

import (
	"sync"
	"testing"
	"time"

	"ain_oman_legal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCaseLifecycleScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctx

	// 1. First case of a fresh tenant
	c := env.createCase(t, "Unpaid rent, Al Khuwair")
	assert.Equal(t, "LEGAL-000001", c.ID)
	assert.Equal(t, models.CaseStatusOpen, c.Status)
	assert.Equal(t, models.CaseStageInvestigation, c.Stage)
	assert.Equal(t, "OMR", c.Currency)

	// 2. Stage change appends one history row
	env.advance(time.Hour)
	c, err := env.svc.Cases.UpdateStage(ctx, env.ac, c.ID, models.CaseStageNegotiation, "Landlord open to talks")
	require.NoError(t, err)
	assert.Equal(t, models.CaseStageNegotiation, c.Stage)

	history, err := env.svc.Cases.StageHistory(ctx, testTenant, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.CaseStageInvestigation, history[0].FromStage)
	assert.Equal(t, models.CaseStageNegotiation, history[0].ToStage)
	assert.Equal(t, "USER-1", history[0].ChangedBy)

	// 3. A legal fee is revenue
	_, err = env.svc.Cases.AddExpense(ctx, env.ac, c.ID, ExpenseInput{Category: models.ExpenseCategoryLegalFee, Amount: 500})
	require.NoError(t, err)
	analytics, err := env.svc.Analytics.Generate(ctx, env.ac)
	require.NoError(t, err)
	assert.Equal(t, 500.0, analytics.TotalRevenue)
	assert.Equal(t, 1, analytics.TotalCases)

	_, err = env.svc.Predictions.Generate(ctx, env.ac, c.ID)
	require.NoError(t, err)

	// 4. Delete removes the case and its derived data
	_, err = env.svc.Cases.Delete(ctx, env.ac, c.ID)
	require.NoError(t, err)

	_, err = env.svc.Cases.Get(ctx, testTenant, c.ID)
	assert.ErrorIs(t, err, ErrCaseNotFound)
	_, err = env.svc.Predictions.Cached(ctx, testTenant, c.ID)
	assert.ErrorIs(t, err, ErrPredictionNotFound)
	_, err = env.svc.Predictions.Generate(ctx, env.ac, c.ID)
	assert.ErrorIs(t, err, ErrCaseNotFound)

	// Stage history and audit survive the case; the rows are voided
	history, err = env.svc.Cases.StageHistory(ctx, testTenant, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Voided)
	require.NotNil(t, history[0].VoidReason)
	assert.Equal(t, "case deleted", *history[0].VoidReason)
	active, err := env.svc.Cases.ActiveStageHistory(ctx, testTenant, c.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Equal(t, []models.AuditAction{
		models.AuditActionDelete,
		models.AuditActionStageChange,
		models.AuditActionCreate,
	}, env.auditActions(t, models.EntityKindCase, c.ID))

	// Ids are never reused
	next := env.createCase(t, "Second")
	assert.Equal(t, "LEGAL-000002", next.ID)
}

func TestCreateCaseDefaults(t *testing.T) {
	env := newTestEnv(t)

	c, err := env.svc.Cases.Create(env.ctx, env.ac, "  ", "CLIENT-9", "", CaseOptions{
		Type:    "eviction",
		Summary: "<script>alert(1)</script>Tenant <b>refuses</b> to leave",
		Extra:   map[string]string{"unit": "4B"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Untitled case LEGAL-000001", c.Title)
	assert.Equal(t, models.CaseTypeEviction, c.Type)
	assert.Equal(t, models.CasePriorityMedium, c.Priority)
	assert.Equal(t, "Tenant <b>refuses</b> to leave", c.Summary)
	assert.Equal(t, "4B", c.Extra["unit"])
	assert.Equal(t, env.clock(), c.CreatedAt)
	assert.Equal(t, "USER-1", c.CreatedBy)

	_, err = env.svc.Cases.Create(env.ctx, env.ac, "x", "", "", CaseOptions{Priority: "CRITICAL"})
	assert.ErrorIs(t, err, ErrInvalidCasePriority)
}

func TestCreateCaseConcurrentIDs(t *testing.T) {
	env := newTestEnv(t)

	const n = 20
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := env.svc.Cases.Create(env.ctx, env.ac, "Concurrent", "", "", CaseOptions{})
			if assert.NoError(t, err) {
				ids <- c.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)

	cases, err := env.svc.Cases.List(env.ctx, testTenant, CaseFilters{})
	require.NoError(t, err)
	assert.Len(t, cases, n)
}

func TestCaseStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctx
	c := env.createCase(t, "Deposit dispute")

	env.advance(24 * time.Hour)
	closed, err := env.svc.Cases.Close(ctx, env.ac, c.ID, "Settled out of court")
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, env.clock(), *closed.ClosedAt)
	assert.Equal(t, "Settled out of court", closed.ClosedReason)

	// Closing again keeps the first stamp and writes no audit entry
	env.advance(time.Hour)
	again, err := env.svc.Cases.Close(ctx, env.ac, c.ID, "")
	require.NoError(t, err)
	assert.Equal(t, *closed.ClosedAt, *again.ClosedAt)

	// Reopening clears the closure
	reopened, err := env.svc.Cases.UpdateStatus(ctx, env.ac, c.ID, models.CaseStatusInProgress, "")
	require.NoError(t, err)
	assert.Nil(t, reopened.ClosedAt)
	assert.Empty(t, reopened.ClosedReason)

	resolved, err := env.svc.Cases.Resolve(ctx, env.ac, c.ID, models.CaseOutcomeWon, "Judgment for client")
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusResolved, resolved.Status)
	assert.Equal(t, models.CaseOutcomeWon, resolved.Outcome)
	require.NotNil(t, resolved.ClosedAt)

	archived, err := env.svc.Cases.Archive(ctx, env.ac, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusArchived, archived.Status)
	assert.Equal(t, models.CaseStageInvestigation, archived.Stage)

	// Archived is final
	_, err = env.svc.Cases.UpdateStatus(ctx, env.ac, c.ID, models.CaseStatusOpen, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = env.svc.Cases.Archive(ctx, env.ac, c.ID)
	assert.NoError(t, err)

	_, err = env.svc.Cases.UpdateStatus(ctx, env.ac, c.ID, "DONE", "")
	assert.ErrorIs(t, err, ErrInvalidCaseStatus)
	_, err = env.svc.Cases.Resolve(ctx, env.ac, c.ID, "MAYBE", "")
	assert.ErrorIs(t, err, ErrInvalidCaseOutcome)
	_, err = env.svc.Cases.UpdateStatus(ctx, env.ac, "LEGAL-999999", models.CaseStatusClosed, "")
	assert.ErrorIs(t, err, ErrCaseNotFound)

	actions := env.auditActions(t, models.EntityKindCase, c.ID)
	assert.Equal(t, []models.AuditAction{
		models.AuditActionStatusChange, // archive
		models.AuditActionStatusChange, // resolve
		models.AuditActionStatusChange, // reopen
		models.AuditActionStatusChange, // close
		models.AuditActionCreate,
	}, actions)
}

func TestUpdateStageNoOp(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCase(t, "No-op stage")

	before := c.UpdatedAt
	env.advance(time.Minute)
	same, err := env.svc.Cases.UpdateStage(env.ctx, env.ac, c.ID, models.CaseStageInvestigation, "")
	require.NoError(t, err)
	assert.Equal(t, before, same.UpdatedAt)

	history, err := env.svc.Cases.StageHistory(env.ctx, testTenant, c.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = env.svc.Cases.UpdateStage(env.ctx, env.ac, c.ID, "MEDIATION", "")
	assert.ErrorIs(t, err, ErrInvalidCaseStage)
}

// requireStageChain checks that rows start at from and each row continues the previous one
func requireStageChain(t *testing.T, rows []models.CaseStageHistory, from string) {
	t.Helper()
	for i, row := range rows {
		require.Equal(t, from, row.FromStage, "row %d", i)
		require.NotEqual(t, row.FromStage, row.ToStage, "row %d", i)
		from = row.ToStage
	}
}

func TestStageHistoryChain(t *testing.T) {
	tests := []struct {
		name   string
		stages []string
		rows   int
	}{
		{
			name:   "Forward through the courts",
			stages: []string{models.CaseStageNegotiation, models.CaseStageFiling, models.CaseStageHearing, models.CaseStageJudgment},
			rows:   4,
		},
		{
			name:   "Back to an earlier stage",
			stages: []string{models.CaseStageFiling, models.CaseStageHearing, models.CaseStageNegotiation, models.CaseStageSettlement, models.CaseStageHearing},
			rows:   5,
		},
		{
			name:   "Repeated stage adds nothing",
			stages: []string{models.CaseStageHearing, models.CaseStageHearing, models.CaseStageAppeal, models.CaseStageAppeal, models.CaseStageInvestigation},
			rows:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			c := env.createCase(t, tt.name)

			for _, stage := range tt.stages {
				env.advance(time.Minute)
				_, err := env.svc.Cases.UpdateStage(env.ctx, env.ac, c.ID, stage, "")
				require.NoError(t, err)
			}

			history, err := env.svc.Cases.StageHistory(env.ctx, testTenant, c.ID)
			require.NoError(t, err)
			require.Len(t, history, tt.rows)
			requireStageChain(t, history, models.CaseStageInvestigation)
			assert.Equal(t, tt.stages[len(tt.stages)-1], history[len(history)-1].ToStage)
			for i := 1; i < len(history); i++ {
				assert.False(t, history[i].ChangedAt.Before(history[i-1].ChangedAt))
			}

			got, err := env.svc.Cases.Get(env.ctx, testTenant, c.ID)
			require.NoError(t, err)
			assert.Equal(t, history[len(history)-1].ToStage, got.Stage)
		})
	}
}

func TestStageHistoryOfRecreatedCase(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctx

	c := env.createCase(t, "First life")
	_, err := env.svc.Cases.UpdateStage(ctx, env.ac, c.ID, models.CaseStageHearing, "")
	require.NoError(t, err)
	_, err = env.svc.Cases.Delete(ctx, env.ac, c.ID)
	require.NoError(t, err)

	revived, isNew, err := env.svc.Cases.Upsert(ctx, env.ac, c.ID, CasePatch{Title: strPtr("Second life")})
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, models.CaseStageInvestigation, revived.Stage)

	_, err = env.svc.Cases.UpdateStage(ctx, env.ac, c.ID, models.CaseStageNegotiation, "")
	require.NoError(t, err)
	_, err = env.svc.Cases.UpdateStage(ctx, env.ac, c.ID, models.CaseStageSettlement, "")
	require.NoError(t, err)

	active, err := env.svc.Cases.ActiveStageHistory(ctx, testTenant, c.ID)
	require.NoError(t, err)
	require.Len(t, active, 2)
	requireStageChain(t, active, models.CaseStageInvestigation)

	// The first life is still on record, voided
	all, err := env.svc.Cases.StageHistory(ctx, testTenant, c.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].Voided)
	assert.Equal(t, models.CaseStageHearing, all[0].ToStage)
	assert.False(t, all[1].Voided)

	// Deleting again voids only what was still active
	_, err = env.svc.Cases.Delete(ctx, env.ac, c.ID)
	require.NoError(t, err)
	all, err = env.svc.Cases.StageHistory(ctx, testTenant, c.ID)
	require.NoError(t, err)
	for _, row := range all {
		assert.True(t, row.Voided)
	}
	assert.Equal(t, "USER-1", all[2].VoidedBy)
}

func TestVoidStageHistory(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCase(t, "Voiding")
	_, err := env.svc.Cases.UpdateStage(env.ctx, env.ac, c.ID, models.CaseStageFiling, "")
	require.NoError(t, err)

	history, err := env.svc.Cases.StageHistory(env.ctx, testTenant, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	voided, err := env.svc.Cases.VoidStageHistory(env.ctx, env.ac, history[0].ID, " entered by mistake ")
	require.NoError(t, err)
	assert.True(t, voided.Voided)
	require.NotNil(t, voided.VoidReason)
	assert.Equal(t, "entered by mistake", *voided.VoidReason)
	assert.Equal(t, "USER-1", voided.VoidedBy)

	_, err = env.svc.Cases.VoidStageHistory(env.ctx, env.ac, history[0].ID, "again")
	assert.ErrorIs(t, err, ErrStageHistoryAlreadyVoided)
	_, err = env.svc.Cases.VoidStageHistory(env.ctx, env.ac, "missing", "")
	assert.ErrorIs(t, err, ErrStageHistoryNotFound)

	// Voided rows are still listed
	history, err = env.svc.Cases.StageHistory(env.ctx, testTenant, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Voided)
}

func TestUpsertCase(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctx

	// Missing case is created with the caller's id
	created, isNew, err := env.svc.Cases.Upsert(ctx, env.ac, "LEGAL-000050", CasePatch{
		Title: strPtr("Imported case"),
		Stage: strPtr(models.CaseStageHearing),
		Extra: map[string]string{"source": "import"},
	})
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "LEGAL-000050", created.ID)
	assert.Equal(t, models.CaseStageHearing, created.Stage)
	assert.Equal(t, models.CaseStatusOpen, created.Status)

	history, err := env.svc.Cases.StageHistory(ctx, testTenant, created.ID)
	require.NoError(t, err)
	assert.Empty(t, history, "creation does not record a transition")

	// Counter was not consumed
	next := env.createCase(t, "Regular")
	assert.Equal(t, "LEGAL-000001", next.ID)

	// Existing case is merged, Extra key by key
	updated, isNew, err := env.svc.Cases.Upsert(ctx, env.ac, "LEGAL-000050", CasePatch{
		Stage:  strPtr(models.CaseStageJudgment),
		Status: strPtr(models.CaseStatusClosed),
		Extra:  map[string]string{"court": "Muscat Primary"},
	})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, "Imported case", updated.Title)
	assert.Equal(t, models.CaseStageJudgment, updated.Stage)
	assert.NotNil(t, updated.ClosedAt)
	assert.Equal(t, map[string]string{"source": "import", "court": "Muscat Primary"}, updated.Extra)

	history, err = env.svc.Cases.StageHistory(ctx, testTenant, created.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, _, err = env.svc.Cases.Upsert(ctx, env.ac, " ", CasePatch{})
	assert.ErrorIs(t, err, ErrCaseIDRequired)
	_, _, err = env.svc.Cases.Upsert(ctx, env.ac, "LEGAL-000050", CasePatch{Priority: strPtr("NOW")})
	assert.ErrorIs(t, err, ErrInvalidCasePriority)
}

func TestCreateSkipsIDsTakenByUpsert(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.svc.Cases.Upsert(env.ctx, env.ac, "LEGAL-000001", CasePatch{Title: strPtr("Taken")})
	require.NoError(t, err)

	c := env.createCase(t, "Fresh")
	assert.Equal(t, "LEGAL-000002", c.ID)
}

func TestListCasesFilters(t *testing.T) {
	env := newTestEnv(t)
	first := env.createCase(t, "Lease termination")
	env.advance(time.Minute)
	_, err := env.svc.Cases.Create(env.ctx, env.ac, "Contract breach", "CLIENT-2", "LAWYER-2", CaseOptions{Type: models.CaseTypeContract})
	require.NoError(t, err)

	all, err := env.svc.Cases.List(env.ctx, testTenant, CaseFilters{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "LEGAL-000002", all[0].ID, "newest first")

	byLawyer, err := env.svc.Cases.List(env.ctx, testTenant, CaseFilters{LawyerID: "LAWYER-1"})
	require.NoError(t, err)
	require.Len(t, byLawyer, 1)
	assert.Equal(t, first.ID, byLawyer[0].ID)

	search, err := env.svc.Cases.List(env.ctx, testTenant, CaseFilters{SearchQuery: "BREACH"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, models.CaseTypeContract, search[0].Type)

	other, err := env.svc.Cases.List(env.ctx, "another-tenant", CaseFilters{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDeleteCaseCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.ctx
	c := env.createCase(t, "Cascade")
	keep := env.createCase(t, "Keep")

	_, err := env.svc.Cases.Assign(ctx, env.ac, c.ID, "LAWYER-2", "")
	require.NoError(t, err)
	_, err = env.svc.Cases.AddDocument(ctx, env.ac, c.ID, DocumentInput{FileName: "lease.pdf"})
	require.NoError(t, err)
	_, err = env.svc.Cases.AddMessage(ctx, env.ac, c.ID, MessageInput{Body: "Called landlord"})
	require.NoError(t, err)
	_, err = env.svc.Cases.AddExpense(ctx, env.ac, c.ID, ExpenseInput{Amount: 20})
	require.NoError(t, err)
	_, err = env.svc.Cases.AddExpense(ctx, env.ac, keep.ID, ExpenseInput{Amount: 30})
	require.NoError(t, err)
	_, err = env.svc.Tasks.Create(ctx, env.ac, c.ID, TaskInput{Title: "Draft notice"})
	require.NoError(t, err)
	_, err = env.svc.Transfers.Request(ctx, env.ac, c.ID, TransferRequest{ToInstitution: "Muscat Court"})
	require.NoError(t, err)

	_, err = env.svc.Cases.Delete(ctx, env.ac, c.ID)
	require.NoError(t, err)

	snap, err := env.svc.Store.Load(ctx, testTenant)
	require.NoError(t, err)
	assert.Empty(t, snap.AssignmentsFor(c.ID))
	assert.Empty(t, snap.DocumentsFor(c.ID))
	assert.Empty(t, snap.MessagesFor(c.ID))
	assert.Empty(t, snap.ExpensesFor(c.ID))
	assert.Empty(t, snap.TasksWhere(func(t *models.LegalTask) bool { return t.CaseID == c.ID }))
	assert.Len(t, snap.ExpensesFor(keep.ID), 1)
	assert.Len(t, snap.TransfersFor(c.ID), 1, "transfers are history")

	_, err = env.svc.Cases.Delete(ctx, env.ac, c.ID)
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestMutationRollsBackWhenPersistFails(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCase(t, "Rollback")

	env.storage.setFailing(true)
	_, err := env.svc.Cases.UpdateStage(env.ctx, env.ac, c.ID, models.CaseStageHearing, "")
	assert.ErrorIs(t, err, errStorageDown)
	_, err = env.svc.Cases.Create(env.ctx, env.ac, "Never stored", "", "", CaseOptions{})
	assert.Error(t, err)
	env.storage.setFailing(false)

	got, err := env.svc.Cases.Get(env.ctx, testTenant, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStageInvestigation, got.Stage)

	history, err := env.svc.Cases.StageHistory(env.ctx, testTenant, c.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, []models.AuditAction{models.AuditActionCreate}, env.auditActions(t, models.EntityKindCase, c.ID))

	cases, err := env.svc.Cases.List(env.ctx, testTenant, CaseFilters{})
	require.NoError(t, err)
	assert.Len(t, cases, 1)
}

func TestGenerateInsights(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCase(t, "Insights")

	insights, err := env.svc.Cases.GenerateInsights(env.ctx, env.ac, c.ID)
	require.NoError(t, err)
	assert.Equal(t, env.clock(), insights.GeneratedAt)

	got, err := env.svc.Cases.Get(env.ctx, testTenant, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AIInsights)
	assert.Equal(t, insights.Complexity, got.AIInsights.Complexity)

	_, err = env.svc.Cases.GenerateInsights(env.ctx, env.ac, "LEGAL-404")
	assert.ErrorIs(t, err, ErrCaseNotFound)
}
