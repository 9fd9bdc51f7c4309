package shared

import "strings"

// Role identifies a staff profile.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleWaiter  Role = "mesero"
	RoleKitchen Role = "cocina"
)

// IsValid reports whether the role is one of the known profiles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleWaiter, RoleKitchen:
		return true
	default:
		return false
	}
}

// ParseRole normalises a role string.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.IsValid()
}

// Dining room permissions.
const (
	PermTableView   = "dining.table.view"
	PermTableManage = "dining.table.manage"
	PermOrderView   = "dining.order.view"
	PermOrderCreate = "dining.order.create"
	PermOrderState  = "dining.order.state"
	PermOrderPay    = "dining.order.pay"
	PermOrderDelete = "dining.order.delete"
	PermSessionView = "dining.session.view"
	PermSessionEnd  = "dining.session.release"
	PermKitchenView = "dining.kitchen.view"
	PermNotifyFeed  = "dining.notifications.view"
)

// Menu permissions.
const (
	PermMenuView   = "menu.view"
	PermMenuManage = "menu.manage"
)

// Invoicing permissions.
const (
	PermInvoiceView    = "billing.invoice.view"
	PermInvoiceCreate  = "billing.invoice.create"
	PermInvoiceEdit    = "billing.invoice.edit"
	PermInvoiceDelete  = "billing.invoice.delete"
	PermInvoicePayment = "billing.invoice.payment"
	PermReceivableView = "billing.receivable.view"
)

// Delivery permissions.
const (
	PermDeliveryView      = "delivery.view"
	PermDeliveryCreate    = "delivery.create"
	PermDeliveryEdit      = "delivery.edit"
	PermDeliveryState     = "delivery.state"
	PermDeliveryCancel    = "delivery.cancel"
	PermDeliveryKitchen   = "delivery.kitchen"
	PermDeliveryEditFinal = "delivery.edit.delivered"
	PermCourierManage     = "delivery.courier.manage"
	PermZoneView          = "delivery.zone.view"
	PermZoneManage        = "delivery.zone.manage"
)

// Expense and budget permissions.
const (
	PermExpenseView     = "finance.expense.view"
	PermExpenseCreate   = "finance.expense.create"
	PermExpenseEditAny  = "finance.expense.edit_any"
	PermExpenseDelete   = "finance.expense.delete"
	PermExpenseApprove  = "finance.expense.approve"
	PermPayableView     = "finance.payable.view"
	PermPayablePay      = "finance.payable.pay"
	PermPayableDueDate  = "finance.payable.due_date"
	PermProviderView    = "finance.provider.view"
	PermProviderManage  = "finance.provider.manage"
	PermProviderToggle  = "finance.provider.toggle"
	PermCategoryManage  = "finance.category.manage"
	PermBudgetView      = "finance.budget.view"
	PermBudgetManage    = "finance.budget.manage"
	PermStaffMealView   = "finance.staff_meal.view"
	PermStaffMealCreate = "finance.staff_meal.create"
)

// Platform permissions.
const (
	PermReportView     = "reports.view"
	PermSettingsView   = "settings.view"
	PermSettingsManage = "settings.manage"
	PermUsersView      = "users.view"
	PermUsersEdit      = "users.edit"
	PermJobsView       = "jobs.view"
	PermAuditView      = "audit.view"
)

var waiterScopes = []string{
	PermTableView,
	PermOrderView,
	PermOrderCreate,
	PermOrderState,
	PermOrderPay,
	PermOrderDelete,
	PermSessionView,
	PermSessionEnd,
	PermNotifyFeed,
	PermMenuView,
	PermInvoiceView,
	PermInvoiceCreate,
	PermInvoicePayment,
	PermReceivableView,
	PermDeliveryView,
	PermDeliveryCreate,
	PermDeliveryEdit,
	PermDeliveryState,
	PermDeliveryCancel,
	PermZoneView,
	PermExpenseView,
	PermExpenseCreate,
	PermPayableView,
	PermPayablePay,
	PermProviderView,
	PermProviderManage,
	PermStaffMealView,
	PermStaffMealCreate,
	PermReportView,
	PermSettingsView,
}

var kitchenScopes = []string{
	PermOrderView,
	PermOrderState,
	PermKitchenView,
	PermMenuView,
	PermDeliveryView,
	PermDeliveryKitchen,
	PermExpenseView,
	PermProviderView,
	PermPayableView,
	PermStaffMealView,
	PermReportView,
}

var adminOnlyScopes = []string{
	PermTableManage,
	PermKitchenView,
	PermMenuManage,
	PermInvoiceEdit,
	PermInvoiceDelete,
	PermDeliveryKitchen,
	PermDeliveryEditFinal,
	PermCourierManage,
	PermZoneManage,
	PermExpenseEditAny,
	PermExpenseDelete,
	PermExpenseApprove,
	PermPayableDueDate,
	PermProviderToggle,
	PermCategoryManage,
	PermBudgetView,
	PermBudgetManage,
	PermSettingsManage,
	PermUsersView,
	PermUsersEdit,
	PermJobsView,
	PermAuditView,
}

// RolePermissions returns the permission set granted to a role.
func RolePermissions(role Role) []string {
	switch role {
	case RoleAdmin:
		out := make([]string, 0, len(waiterScopes)+len(kitchenScopes)+len(adminOnlyScopes))
		seen := make(map[string]struct{})
		for _, group := range [][]string{waiterScopes, kitchenScopes, adminOnlyScopes} {
			for _, p := range group {
				if _, ok := seen[p]; ok {
					continue
				}
				seen[p] = struct{}{}
				out = append(out, p)
			}
		}
		return out
	case RoleWaiter:
		return append([]string(nil), waiterScopes...)
	case RoleKitchen:
		return append([]string(nil), kitchenScopes...)
	default:
		return nil
	}
}
