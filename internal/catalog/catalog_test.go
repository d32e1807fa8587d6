package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

func salesApp() Application {
	return Application{
		ID:        "sales",
		Name:      "Sales",
		IsEnabled: true,
		Modules: []Module{
			module("customers", "", "view", "create"),
			module("orders", "", "view"),
		},
	}
}

func TestNewRejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name string
		apps []Application
		want error
	}{
		{name: "empty app id", apps: []Application{{}}, want: shared.ErrValidation},
		{name: "duplicate app", apps: []Application{salesApp(), salesApp()}, want: shared.ErrConflict},
		{name: "duplicate module", apps: []Application{{ID: "a", Modules: []Module{module("m", ""), module("m", "")}}}, want: shared.ErrConflict},
		{name: "duplicate action", apps: []Application{{ID: "a", Modules: []Module{module("m", "", "view", "view")}}}, want: shared.ErrConflict},
		{name: "dotted module", apps: []Application{{ID: "a", Modules: []Module{module("m.x", "")}}}, want: shared.ErrValidation},
		{name: "wildcard action", apps: []Application{{ID: "a", Modules: []Module{module("m", "", "*")}}}, want: shared.ErrValidation},
		{name: "blank action", apps: []Application{{ID: "a", Modules: []Module{module("m", "", "")}}}, want: shared.ErrValidation},
		{name: "duplicate seed role", apps: []Application{{ID: "a", SeedRoles: []SeedRole{{ID: "r"}, {ID: "r"}}}}, want: shared.ErrConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.apps...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestLookups(t *testing.T) {
	c := MustNew(salesApp())

	app, ok := c.GetApplication("sales")
	require.True(t, ok)
	assert.Equal(t, "Sales", app.Name)

	_, ok = c.GetApplication("hr")
	assert.False(t, ok)
	assert.True(t, c.HasApplication("sales"))
	assert.False(t, c.HasApplication("hr"))

	assert.Len(t, c.ListModules("sales"), 2)
	assert.Empty(t, c.ListModules("hr"))

	actions := c.ListActions("sales", "customers")
	require.Len(t, actions, 2)
	assert.Equal(t, "view", actions[0].ID)
	assert.Empty(t, c.ListActions("sales", "ghost"))
	assert.Empty(t, c.ListActions("hr", "customers"))
}

func TestReadsReturnCopies(t *testing.T) {
	c := MustNew(salesApp())

	modules := c.ListModules("sales")
	modules[0].Actions[0].ID = "mutated"
	modules[0].Actions = append(modules[0].Actions, Action{ID: "extra"})

	actions := c.ListActions("sales", "customers")
	assert.Len(t, actions, 2)
	assert.Equal(t, "view", actions[0].ID)
}

func TestAddAndRemoveAction(t *testing.T) {
	c := MustNew(salesApp())

	require.NoError(t, c.AddAction("sales", "orders", Action{ID: "bulk-cancel"}))
	actions := c.ListActions("sales", "orders")
	require.Len(t, actions, 2)
	assert.Equal(t, "Bulk Cancel", actions[1].Name)

	err := c.AddAction("sales", "orders", Action{ID: "view"})
	assert.True(t, errors.Is(err, shared.ErrConflict))

	err = c.AddAction("sales", "ghost", Action{ID: "view"})
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	err = c.AddAction("sales", "orders", Action{ID: "a.b"})
	assert.True(t, errors.Is(err, shared.ErrValidation))

	require.NoError(t, c.RemoveAction("sales", "orders", "view"))
	assert.Equal(t, []Action{{ID: "bulk-cancel", Name: "Bulk Cancel"}}, c.ListActions("sales", "orders"))

	err = c.RemoveAction("sales", "orders", "view")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestDefaultCatalogSalesScenario(t *testing.T) {
	c := Default()

	actions := c.ListActions("sales", "customers")
	ids := make([]string, 0, len(actions))
	for _, a := range actions {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"view", "create", "edit", "delete", "export"}, ids)

	app, ok := c.GetApplication("sales")
	require.True(t, ok)
	seeds := map[string]SeedRole{}
	for _, r := range app.SeedRoles {
		seeds[r.ID] = r
	}
	assert.Equal(t, []string{"customers.view"}, seeds["sales-viewer"].Permissions)
	assert.Equal(t, []string{"customers.*"}, seeds["sales-admin"].Permissions)
	assert.True(t, seeds["sales-admin"].IsSystem)

	for _, id := range []string{"sales", "accounting", "hr", "production", "banking", "invoicing", "platform"} {
		assert.True(t, c.HasApplication(id), id)
	}
}
