package domain

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestDomainDoesNotImportInternal enforces the layering rule that the domain
// types stay free of implementation packages: everything under internal may
// depend on photocore/pkg/domain, never the other way around.
func TestDomainDoesNotImportInternal(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: false}
	pkgs, err := packages.Load(cfg, "photocore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		t.Fatalf("packages loaded with errors")
	}

	var violations []string
	for _, pkg := range pkgs {
		if pkg.PkgPath != "photocore/pkg/domain" {
			continue
		}
		for imp := range pkg.Imports {
			if strings.HasPrefix(imp, "photocore/internal/") {
				violations = append(violations, pkg.PkgPath+" -> "+imp)
			}
		}
	}
	sort.Strings(violations)
	for _, v := range violations {
		t.Errorf("forbidden import: %s", v)
	}
	if len(violations) > 0 {
		t.Fatalf("domain package depends on %d internal package(s)", len(violations))
	}
}

// TestOnlyCommandImportsEngineConfig keeps configuration loading at the edge
// of the program. Library packages receive already parsed values through their
// constructors instead of reading files or the environment themselves.
func TestOnlyCommandImportsEngineConfig(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: false}
	pkgs, err := packages.Load(cfg, "photocore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		t.Fatalf("packages loaded with errors")
	}

	var violations []string
	for _, pkg := range pkgs {
		if pkg.PkgPath == "photocore/internal/engineconfig" ||
			strings.HasPrefix(pkg.PkgPath, "photocore/cmd/") {
			continue
		}
		for imp := range pkg.Imports {
			if imp == "photocore/internal/engineconfig" {
				violations = append(violations, pkg.PkgPath+" -> "+imp)
			}
		}
	}
	sort.Strings(violations)
	for _, v := range violations {
		t.Errorf("forbidden import: %s", v)
	}
	if len(violations) > 0 {
		t.Fatalf("%d package(s) import engineconfig outside cmd", len(violations))
	}
}
