package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ain_oman_legal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureNotifier records every email and optionally fails
type captureNotifier struct {
	mu   sync.Mutex
	sent []*Email
	err  error
}

func (c *captureNotifier) Notify(ctx context.Context, email *Email) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, email)
	return c.err
}

func newTransferEnv(t *testing.T, notifier Notifier) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	env.svc = NewLegalServices(env.storage, Options{Clock: env.clock, Notifier: notifier})
	return env
}

func TestTransferLifecycle(t *testing.T) {
	notifier := &captureNotifier{}
	env := newTransferEnv(t, notifier)
	ctx := env.ctx
	c := env.createCase(t, "Handoff")

	_, err := env.svc.Contacts.Add(ctx, env.ac, "LAWYER-2", ContactInput{Name: "Aisha Al-Said", Email: "aisha@example.om"})
	require.NoError(t, err)

	tr, err := env.svc.Transfers.Request(ctx, env.ac, c.ID, TransferRequest{ToActorID: "LAWYER-2", Reason: "Workload"})
	require.NoError(t, err)
	assert.Equal(t, "TRANSFER-000001", tr.TransferNumber)
	assert.Equal(t, models.TransferStatusPending, tr.Status)
	assert.Equal(t, "LAWYER-1", tr.FromActorID)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, []string{"aisha@example.om"}, notifier.sent[0].To)
	assert.Contains(t, notifier.sent[0].TextBody, "TRANSFER-000001")

	// Completing before acceptance is not allowed
	_, err = env.svc.Transfers.Complete(ctx, env.ac, tr.ID)
	assert.ErrorIs(t, err, ErrInvalidTransferTransition)

	accepted, err := env.svc.Transfers.Accept(ctx, env.ac, tr.TransferNumber)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)

	_, err = env.svc.Transfers.Reject(ctx, env.ac, tr.ID, "too late")
	assert.ErrorIs(t, err, ErrInvalidTransferTransition)

	completed, err := env.svc.Transfers.Complete(ctx, env.ac, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusCompleted, completed.Status)

	got, err := env.svc.Cases.Get(ctx, testTenant, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "LAWYER-2", got.LawyerID)

	assignments, err := env.svc.Cases.ListAssignments(ctx, testTenant, c.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "LAWYER-2", assignments[0].ActorID)

	// Completed is terminal
	_, err = env.svc.Transfers.Accept(ctx, env.ac, tr.ID)
	assert.ErrorIs(t, err, ErrInvalidTransferTransition)

	assert.Len(t, env.auditActions(t, models.EntityKindTransfer, tr.ID), 3)
}

func TestTransferReject(t *testing.T) {
	env := newTransferEnv(t, nil)
	c := env.createCase(t, "Reject")

	_, err := env.svc.Transfers.Request(env.ctx, env.ac, c.ID, TransferRequest{})
	assert.ErrorIs(t, err, ErrTransferTargetRequired)
	_, err = env.svc.Transfers.Request(env.ctx, env.ac, "LEGAL-404", TransferRequest{ToInstitution: "Court"})
	assert.ErrorIs(t, err, ErrCaseNotFound)

	tr, err := env.svc.Transfers.Request(env.ctx, env.ac, c.ID, TransferRequest{ToInstitution: "Sohar Court"})
	require.NoError(t, err)
	rejected, err := env.svc.Transfers.Reject(env.ctx, env.ac, tr.ID, " outside jurisdiction ")
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusRejected, rejected.Status)
	assert.Equal(t, "outside jurisdiction", rejected.RejectionReason)

	_, err = env.svc.Transfers.Get(env.ctx, testTenant, "TRANSFER-999999")
	assert.ErrorIs(t, err, ErrTransferNotFound)

	all, err := env.svc.Transfers.List(env.ctx, testTenant, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTransferNotifierFailureIsNotFatal(t *testing.T) {
	notifier := &captureNotifier{err: errors.New("smtp down")}
	env := newTransferEnv(t, notifier)
	c := env.createCase(t, "Notify failure")
	_, err := env.svc.Contacts.Add(env.ctx, env.ac, "LAWYER-2", ContactInput{Name: "Aisha", Email: "aisha@example.om"})
	require.NoError(t, err)

	tr, err := env.svc.Transfers.Request(env.ctx, env.ac, c.ID, TransferRequest{ToActorID: "LAWYER-2"})
	require.NoError(t, err)
	assert.Len(t, notifier.sent, 1)

	stored, err := env.svc.Transfers.Get(env.ctx, testTenant, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusPending, stored.Status)

	// No directory address means no email
	_, err = env.svc.Transfers.Request(env.ctx, env.ac, c.ID, TransferRequest{ToActorID: "LAWYER-9"})
	require.NoError(t, err)
	assert.Len(t, notifier.sent, 1)
}

func TestTransferNumbersConcurrent(t *testing.T) {
	env := newTransferEnv(t, nil)
	c := env.createCase(t, "Concurrent transfers")

	const n = 10
	var wg sync.WaitGroup
	numbers := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr, err := env.svc.Transfers.Request(env.ctx, env.ac, c.ID, TransferRequest{ToInstitution: "Court"})
			if assert.NoError(t, err) {
				numbers <- tr.TransferNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for number := range numbers {
		assert.False(t, seen[number])
		seen[number] = true
	}
	for i := 1; i <= n; i++ {
		assert.True(t, seen[FormatSequenceID(TransferPrefix, int64(i))])
	}
}

func TestCompleteTransferAfterCaseDeleted(t *testing.T) {
	env := newTransferEnv(t, nil)
	c := env.createCase(t, "Deleted mid-transfer")

	tr, err := env.svc.Transfers.Request(env.ctx, env.ac, c.ID, TransferRequest{ToActorID: "LAWYER-2"})
	require.NoError(t, err)
	_, err = env.svc.Transfers.Accept(env.ctx, env.ac, tr.ID)
	require.NoError(t, err)
	_, err = env.svc.Cases.Delete(env.ctx, env.ac, c.ID)
	require.NoError(t, err)

	completed, err := env.svc.Transfers.Complete(env.ctx, env.ac, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransferStatusCompleted, completed.Status)
}
