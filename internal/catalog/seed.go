package catalog

// Default returns the built-in Odyssey ERP catalog together with its seed roles.
func Default() *Catalog {
	return MustNew(
		Application{
			ID:          "sales",
			Name:        "Sales",
			Description: "Customers, quotations and sales orders.",
			IsEnabled:   true,
			Color:       "#2563eb",
			Icon:        "shopping-cart",
			Modules: []Module{
				module("customers", "Customer master data.", "view", "create", "edit", "delete", "export"),
				module("quotations", "Quotations sent to customers.", "view", "create", "edit", "approve", "reject", "convert"),
				module("orders", "Confirmed sales orders.", "view", "create", "edit", "confirm", "cancel"),
				module("deliveries", "Delivery orders and shipping.", "view", "create", "edit", "confirm", "ship", "complete", "cancel", "print"),
			},
			SeedRoles: []SeedRole{
				{ID: "sales-viewer", Name: "Sales Viewer", Description: "Read-only access to customers.", Permissions: []string{"customers.view"}},
				{ID: "sales-admin", Name: "Sales Administrator", Description: "Full customer management.", IsSystem: true, Permissions: []string{"customers.*"}},
				{ID: "sales-rep", Name: "Sales Representative", Permissions: []string{"customers.view", "customers.create", "quotations.*", "orders.view", "orders.create"}},
			},
		},
		Application{
			ID:          "accounting",
			Name:        "Accounting",
			Description: "General ledger, journals and period close.",
			IsEnabled:   true,
			Color:       "#16a34a",
			Icon:        "book-open",
			Modules: []Module{
				module("accounts", "Chart of accounts.", "view", "create", "edit", "archive"),
				module("journals", "Journal entries.", "view", "create", "edit", "post", "reverse"),
				module("periods", "Accounting periods.", "view", "close", "reopen", "override-lock"),
				module("reports", "Trial balance, P&L and balance sheet.", "view", "export"),
			},
			SeedRoles: []SeedRole{
				{ID: "accounting-admin", Name: "Accounting Administrator", IsSystem: true, Permissions: []string{"accounts.*", "journals.*", "periods.*", "reports.*"}},
				{ID: "accountant", Name: "Accountant", Permissions: []string{"accounts.view", "journals.view", "journals.create", "journals.edit", "reports.view"}},
			},
		},
		Application{
			ID:          "hr",
			Name:        "Human Resources",
			Description: "Employees, attendance and payroll.",
			IsEnabled:   true,
			Color:       "#db2777",
			Icon:        "users",
			Modules: []Module{
				module("employees", "Employee records.", "view", "create", "edit", "delete"),
				module("attendance", "Attendance and leave.", "view", "record", "approve"),
				module("payroll", "Payroll runs.", "view", "run", "approve", "export"),
			},
			SeedRoles: []SeedRole{
				{ID: "hr-admin", Name: "HR Administrator", IsSystem: true, Permissions: []string{"employees.*", "attendance.*", "payroll.*"}},
			},
		},
		Application{
			ID:          "production",
			Name:        "Production",
			Description: "Bills of materials and work orders.",
			IsEnabled:   true,
			Color:       "#ea580c",
			Icon:        "factory",
			Modules: []Module{
				module("boms", "Bills of materials.", "view", "create", "edit"),
				module("work-orders", "Work orders on the shop floor.", "view", "create", "release", "complete", "cancel"),
			},
			SeedRoles: []SeedRole{
				{ID: "production-admin", Name: "Production Administrator", IsSystem: true, Permissions: []string{"boms.*", "work-orders.*"}},
			},
		},
		Application{
			ID:          "banking",
			Name:        "Banking",
			Description: "Bank accounts, transfers and reconciliation.",
			IsEnabled:   true,
			Color:       "#0d9488",
			Icon:        "landmark",
			Modules: []Module{
				module("bank-accounts", "Company bank accounts.", "view", "create", "edit"),
				module("transfers", "Outgoing transfers.", "view", "create", "approve"),
				module("reconciliation", "Statement reconciliation.", "view", "reconcile"),
			},
			SeedRoles: []SeedRole{
				{ID: "banking-admin", Name: "Banking Administrator", IsSystem: true, Permissions: []string{"bank-accounts.*", "transfers.*", "reconciliation.*"}},
			},
		},
		Application{
			ID:          "invoicing",
			Name:        "Invoicing",
			Description: "Customer invoices and incoming payments.",
			IsEnabled:   true,
			Color:       "#7c3aed",
			Icon:        "receipt",
			Modules: []Module{
				module("invoices", "Customer invoices.", "view", "create", "edit", "send", "void"),
				module("payments", "Payments received.", "view", "record", "refund"),
			},
			SeedRoles: []SeedRole{
				{ID: "invoicing-admin", Name: "Invoicing Administrator", IsSystem: true, Permissions: []string{"invoices.*", "payments.*"}},
			},
		},
		Application{
			ID:          "platform",
			Name:        "Platform",
			Description: "Users, roles, permissions and tenants.",
			IsEnabled:   true,
			Color:       "#475569",
			Icon:        "settings",
			Modules: []Module{
				module("users", "Platform users.", "view", "edit"),
				module("roles", "Roles and grants.", "view", "edit"),
				module("permissions", "Permission catalog.", "view"),
				module("tenants", "Tenants and subscriptions.", "view", "manage"),
			},
			SeedRoles: []SeedRole{
				{ID: "platform-admin", Name: "Platform Administrator", IsSystem: true, Permissions: []string{"users.*", "roles.*", "permissions.*", "tenants.*"}},
				{ID: "auditor", Name: "Auditor", Permissions: []string{"users.view", "roles.view", "permissions.view"}},
			},
		},
	)
}

func module(id, description string, actions ...string) Module {
	m := Module{ID: id, Name: displayName(id), Description: description, Actions: make([]Action, 0, len(actions))}
	for _, a := range actions {
		m.Actions = append(m.Actions, Action{ID: a, Name: displayName(a)})
	}
	return m
}
