package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/odyssey-erp/odyssey-rbac/internal/catalog"
	"github.com/odyssey-erp/odyssey-rbac/internal/rbac"
)

// CatalogValidateOptions defines available flags for the catalog validate command.
type CatalogValidateOptions struct {
	Path       string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// CatalogValidateSummary describes the JSON response for catalog validate.
type CatalogValidateSummary struct {
	OK           bool              `json:"ok"`
	Applications int               `json:"applications"`
	Problems     []SeedRoleProblem `json:"problems"`
}

// SeedRoleProblem is a seed role grant that is malformed or references
// nothing in the catalog.
type SeedRoleProblem struct {
	AppID      string `json:"app_id"`
	RoleID     string `json:"role_id"`
	Permission string `json:"permission"`
	Reason     string `json:"reason"`
}

const reasonMalformed = "malformed"

// ValidateCatalogCommand loads a catalog file, checks every seed role grant
// and prints the outcome. It returns the process exit code.
func ValidateCatalogCommand(opts CatalogValidateOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Path == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "catalog validate: --file is required")
		return 1
	}
	c, err := catalog.LoadFile(opts.Path)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "catalog validate: %v\n", err)
		return 1
	}

	summary := CatalogValidateSummary{Problems: []SeedRoleProblem{}}
	engine := rbac.NewEngine(c)
	for _, app := range c.ListApplications() {
		summary.Applications++
		for _, role := range app.SeedRoles {
			grants, invalid := rbac.ParseSet(role.Permissions)
			for _, p := range invalid {
				summary.Problems = append(summary.Problems, SeedRoleProblem{AppID: app.ID, RoleID: role.ID, Permission: p, Reason: reasonMalformed})
			}
			for _, s := range engine.StaleGrants(app.ID, grants) {
				summary.Problems = append(summary.Problems, SeedRoleProblem{AppID: app.ID, RoleID: role.ID, Permission: s.Permission, Reason: s.Reason})
			}
		}
	}
	summary.OK = len(summary.Problems) == 0

	if opts.JSONOutput {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "catalog validate: %v\n", err)
			return 1
		}
	} else {
		for _, p := range summary.Problems {
			_, _ = fmt.Fprintf(opts.Stdout, "%s/%s: %s (%s)\n", p.AppID, p.RoleID, p.Permission, p.Reason)
		}
		_, _ = fmt.Fprintf(opts.Stdout, "%d applications, %d problems\n", summary.Applications, len(summary.Problems))
	}
	if !summary.OK {
		return 2
	}
	return 0
}

// ExportCatalogCommand writes the built-in catalog as YAML.
func ExportCatalogCommand(w io.Writer) int {
	if w == nil {
		w = os.Stdout
	}
	if err := catalog.Encode(w, catalog.Default()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "catalog export: %v\n", err)
		return 1
	}
	return 0
}
