package services

import (
	"math"
	"testing"
	"time"

	"ain_oman_legal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignments(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCase(t, "Assignments")

	a, err := env.svc.Cases.Assign(env.ctx, env.ac, c.ID, "LAWYER-2", "")
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentRoleResponsible, a.Role)
	assert.Equal(t, "USER-1", a.AssignedBy)

	// Same actor and role is idempotent
	again, err := env.svc.Cases.Assign(env.ctx, env.ac, c.ID, "LAWYER-2", models.AssignmentRoleResponsible)
	require.NoError(t, err)
	assert.Equal(t, a.ID, again.ID)

	batch, err := env.svc.Cases.AssignBatch(env.ctx, env.ac, c.ID, []string{"PARALEGAL-1", "PARALEGAL-2"}, models.AssignmentRoleViewer)
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	list, err := env.svc.Cases.ListAssignments(env.ctx, testTenant, c.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = env.svc.Cases.Assign(env.ctx, env.ac, c.ID, "X", "OWNER")
	assert.ErrorIs(t, err, ErrInvalidAssignmentRole)
	_, err = env.svc.Cases.AssignBatch(env.ctx, env.ac, c.ID, nil, "")
	assert.ErrorIs(t, err, ErrAssignmentActorRequired)
	_, err = env.svc.Cases.AssignBatch(env.ctx, env.ac, c.ID, []string{"OK", " "}, "")
	assert.ErrorIs(t, err, ErrAssignmentActorRequired)
	_, err = env.svc.Cases.Assign(env.ctx, env.ac, "LEGAL-404", "X", "")
	assert.ErrorIs(t, err, ErrCaseNotFound)

	// A failed batch writes nothing
	list, err = env.svc.Cases.ListAssignments(env.ctx, testTenant, c.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	removed, err := env.svc.Cases.Unassign(env.ctx, env.ac, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "LAWYER-2", removed.ActorID)
	_, err = env.svc.Cases.Unassign(env.ctx, env.ac, a.ID)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)

	assert.Equal(t, []models.AuditAction{models.AuditActionUnassign, models.AuditActionAssign},
		env.auditActions(t, models.EntityKindAssignment, a.ID))
}

func TestDocuments(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCase(t, "Documents")

	doc, err := env.svc.Cases.AddDocument(env.ctx, env.ac, c.ID, DocumentInput{
		FileName:    " lease.pdf ",
		StorageKey:  "documents/x/lease.pdf",
		FileSize:    1024,
		Description: "Signed <i>lease</i><script>x()</script>",
	})
	require.NoError(t, err)
	assert.Equal(t, "lease.pdf", doc.FileName)
	assert.Equal(t, models.ConfidentialityInternal, doc.Confidentiality)
	assert.Equal(t, "Signed <i>lease</i>", doc.Description)

	_, err = env.svc.Cases.AddDocument(env.ctx, env.ac, c.ID, DocumentInput{Confidentiality: "TOP_SECRET"})
	assert.ErrorIs(t, err, ErrInvalidConfidentiality)

	updated, err := env.svc.Cases.UpdateDocument(env.ctx, env.ac, doc.ID, DocumentPatch{
		Confidentiality: strPtr(models.ConfidentialityPrivileged),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ConfidentialityPrivileged, updated.Confidentiality)
	assert.Equal(t, "lease.pdf", updated.FileName)

	got, err := env.svc.Cases.GetDocument(env.ctx, testTenant, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConfidentialityPrivileged, got.Confidentiality)

	docs, err := env.svc.Cases.ListDocuments(env.ctx, testTenant, c.ID)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = env.svc.Cases.DeleteDocument(env.ctx, env.ac, doc.ID)
	require.NoError(t, err)
	_, err = env.svc.Cases.GetDocument(env.ctx, testTenant, doc.ID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	_, err = env.svc.Cases.ListDocuments(env.ctx, testTenant, "LEGAL-404")
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestMessages(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCase(t, "Messages")

	msg, err := env.svc.Cases.AddMessage(env.ctx, env.ac, c.ID, MessageInput{Subject: "Call", Body: "Landlord <b>agreed</b>"})
	require.NoError(t, err)
	assert.Equal(t, models.MessageTypeNote, msg.MessageType)
	assert.Equal(t, "USER-1", msg.SenderID)

	_, err = env.svc.Cases.AddMessage(env.ctx, env.ac, c.ID, MessageInput{MessageType: "FAX"})
	assert.ErrorIs(t, err, ErrInvalidMessageType)

	env.advance(time.Minute)
	_, err = env.svc.Cases.AddMessage(env.ctx, env.ac, c.ID, MessageInput{MessageType: models.MessageTypeEmail, Subject: "Follow-up"})
	require.NoError(t, err)

	edited, err := env.svc.Cases.UpdateMessage(env.ctx, env.ac, msg.ID, nil, strPtr("Landlord declined"))
	require.NoError(t, err)
	assert.Equal(t, "Call", edited.Subject)
	assert.Equal(t, "Landlord declined", edited.Body)

	msgs, err := env.svc.Cases.ListMessages(env.ctx, testTenant, c.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, msg.ID, msgs[0].ID)

	_, err = env.svc.Cases.DeleteMessage(env.ctx, env.ac, msg.ID)
	require.NoError(t, err)
	_, err = env.svc.Cases.GetMessage(env.ctx, testTenant, msg.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestExpenses(t *testing.T) {
	env := newTestEnv(t)
	c := env.createCase(t, "Expenses")

	exp, err := env.svc.Cases.AddExpense(env.ctx, env.ac, c.ID, ExpenseInput{
		Category:    "UNKNOWN",
		Description: "Court stamps",
		Amount:      12.5,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExpenseCategoryOther, exp.Category)
	assert.Equal(t, models.ExpenseStatusPending, exp.Status)
	assert.Equal(t, "OMR", exp.Currency)
	assert.Equal(t, env.clock(), exp.IncurredAt)

	for _, bad := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := env.svc.Cases.AddExpense(env.ctx, env.ac, c.ID, ExpenseInput{Amount: bad})
		assert.ErrorIs(t, err, ErrInvalidExpenseAmount)
	}
	_, err = env.svc.Cases.AddExpense(env.ctx, env.ac, "LEGAL-404", ExpenseInput{Amount: 1})
	assert.ErrorIs(t, err, ErrCaseNotFound)

	approved, err := env.svc.Cases.UpdateExpense(env.ctx, env.ac, exp.ID, ExpensePatch{Status: strPtr(models.ExpenseStatusApproved)})
	require.NoError(t, err)
	require.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, "USER-1", approved.ApprovedBy)

	_, err = env.svc.Cases.UpdateExpense(env.ctx, env.ac, exp.ID, ExpensePatch{Status: strPtr("REFUNDED")})
	assert.ErrorIs(t, err, ErrInvalidExpenseStatus)

	voided, err := env.svc.Cases.VoidExpense(env.ctx, env.ac, exp.ID, "duplicate")
	require.NoError(t, err)
	assert.True(t, voided.Voided)
	_, err = env.svc.Cases.VoidExpense(env.ctx, env.ac, exp.ID, "again")
	assert.ErrorIs(t, err, ErrExpenseAlreadyVoided)

	// Voided expenses stay listed
	list, err := env.svc.Cases.ListExpenses(env.ctx, testTenant, c.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = env.svc.Cases.DeleteExpense(env.ctx, env.ac, exp.ID)
	require.NoError(t, err)
	_, err = env.svc.Cases.GetExpense(env.ctx, testTenant, exp.ID)
	assert.ErrorIs(t, err, ErrExpenseNotFound)

	assert.Equal(t, []models.AuditAction{
		models.AuditActionDelete,
		models.AuditActionVoid,
		models.AuditActionUpdate,
		models.AuditActionCreate,
	}, env.auditActions(t, models.EntityKindExpense, exp.ID))
}
