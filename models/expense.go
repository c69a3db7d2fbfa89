package models

import (
	"time"
)

// Expense status constants (approval workflow)
const (
	ExpenseStatusPending  = "PENDING"
	ExpenseStatusApproved = "APPROVED"
	ExpenseStatusPaid     = "PAID"
	ExpenseStatusRejected = "REJECTED"
)

// Expense category constants. LEGAL_FEE entries count as revenue in analytics.
const (
	ExpenseCategoryLegalFee  = "LEGAL_FEE"
	ExpenseCategoryCourtFee  = "COURT_FEE"
	ExpenseCategoryFiling    = "FILING"
	ExpenseCategoryExpertFee = "EXPERT_FEE"
	ExpenseCategoryTravel    = "TRAVEL"
	ExpenseCategoryAdmin     = "ADMINISTRATIVE"
	ExpenseCategoryOther     = "OTHER"
)

// Expense tracks a cost (or billed fee) recorded against a case
type Expense struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	CaseID    string    `json:"case_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Category    string    `json:"category"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	IncurredAt  time.Time `json:"incurred_at"`

	// Approval
	Status     string     `json:"status"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	ApprovedBy string     `json:"approved_by,omitempty"`

	// Voided entries are kept for the record but excluded from totals
	Voided     bool    `json:"voided"`
	VoidReason *string `json:"void_reason,omitempty"`

	RecordedBy string `json:"recorded_by,omitempty"`
}

// IsLegalFee reports whether the expense is billed fee revenue
func (e *Expense) IsLegalFee() bool {
	return e.Category == ExpenseCategoryLegalFee
}

// IsValidExpenseStatus checks if the status is valid
func IsValidExpenseStatus(status string) bool {
	switch status {
	case ExpenseStatusPending, ExpenseStatusApproved, ExpenseStatusPaid, ExpenseStatusRejected:
		return true
	}
	return false
}

// IsValidExpenseCategory checks if the category is valid
func IsValidExpenseCategory(category string) bool {
	switch category {
	case ExpenseCategoryLegalFee, ExpenseCategoryCourtFee, ExpenseCategoryFiling,
		ExpenseCategoryExpertFee, ExpenseCategoryTravel, ExpenseCategoryAdmin, ExpenseCategoryOther:
		return true
	}
	return false
}

// GetExpenseStatusDisplayName returns human-readable status name
func GetExpenseStatusDisplayName(status string) string {
	names := map[string]string{
		ExpenseStatusPending:  "Pending Approval",
		ExpenseStatusApproved: "Approved",
		ExpenseStatusPaid:     "Paid",
		ExpenseStatusRejected: "Rejected",
	}
	if name, ok := names[status]; ok {
		return name
	}
	return status
}
