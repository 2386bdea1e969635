package domain

// PlanStats is the read-only rollup over the plan store. Computed per
// request, never cached; an empty store yields zeros.
type PlanStats struct {
	ActivePlans         int64 `json:"active_plans" db:"active_plans"`
	CompletedPlans      int64 `json:"completed_plans" db:"completed_plans"`
	DefaultedPlans      int64 `json:"defaulted_plans" db:"defaulted_plans"`
	TotalRevenue        int64 `json:"total_revenue" db:"total_revenue"`
	PendingRevenue      int64 `json:"pending_revenue" db:"pending_revenue"`
	OverdueInstallments int64 `json:"overdue_installments" db:"overdue_installments"`
}
