package config

type SecurityLevel int

const (
	SecurityPublic     SecurityLevel = iota // No authentication
	SecurityAccess                          // Access or service token required
	SecurityAccountant                      // Access token with the accountant role
)

// EndpointSecurityConfig maps HTTP route names to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	"health": SecurityPublic,

	// Chart of accounts
	"accounts.create":      SecurityAccountant,
	"accounts.list":        SecurityAccess,
	"accounts.move":        SecurityAccountant,
	"accounts.deactivate":  SecurityAccountant,
	"accounts.balance":     SecurityAccess,
	"accounts.ancestors":   SecurityAccess,
	"accounts.descendants": SecurityAccess,

	// Ledger
	"transactions.create":  SecurityAccountant,
	"transactions.list":    SecurityAccess,
	"transactions.get":     SecurityAccess,
	"transactions.entries": SecurityAccountant,
	"transactions.post":    SecurityAccountant,
	"transactions.cancel":  SecurityAccountant,
	"transactions.reverse": SecurityAccountant,
	"periods.close":        SecurityAccountant,
	"periods.reopen":       SecurityAccountant,

	// Account mapping
	"mappings.concept": SecurityAccess,
	"mappings.cash":    SecurityAccess,

	// Invoices and expenses
	"invoices.create":  SecurityAccess,
	"invoices.get":     SecurityAccess,
	"invoices.cancel":  SecurityAccountant,
	"expenses.create":  SecurityAccess,
	"expenses.approve": SecurityAccountant,
	"expenses.cancel":  SecurityAccountant,

	// Payments
	"payments.create":      SecurityAccess,
	"payments.get":         SecurityAccess,
	"payments.apply":       SecurityAccess,
	"payments.reverse":     SecurityAccountant,
	"applications.reverse": SecurityAccountant,

	// Budgets
	"budgets.create":     SecurityAccountant,
	"budgets.get":        SecurityAccess,
	"budgets.items":      SecurityAccountant,
	"budgets.activate":   SecurityAccountant,
	"budgets.close":      SecurityAccountant,
	"budgets.refresh":    SecurityAccess,
	"budgets.alerts":     SecurityAccess,
	"executions.refresh": SecurityAccess,

	// Bank imports
	"imports.create":    SecurityAccess,
	"imports.reconcile": SecurityAccess,
	"imports.summary":   SecurityAccess,
	"rows.reconcile":    SecurityAccess,
	"rows.assign":       SecurityAccess,
	"rows.reject":       SecurityAccess,
	"rows.payment":      SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccountant
}
