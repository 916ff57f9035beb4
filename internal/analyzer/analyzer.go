// Package analyzer provides the line grammars that turn command output into
// a report.Report. Each analyzer is a report.Builder registered by name.
package analyzer

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/deixis/verdict/internal/report"
)

var builtin = map[string]report.Builder{
	"gotest":      GoTest{},
	"gobuild":     GoBuild{},
	"staticcheck": Staticcheck{},
	"golangci":    GolangCI{},
	"generic":     Generic{},
}

// Lookup returns the analyzer registered under name.
func Lookup(name string) (report.Builder, error) {
	if b, ok := builtin[name]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("unknown analyzer %q (known: %s)", name, strings.Join(Names(), ", "))
}

// Names returns the registered analyzer names in sorted order.
func Names() []string {
	return slices.Sorted(maps.Keys(builtin))
}

// derivePackageFromFile extracts a package-like path from a file path.
// This is best-effort; the caller may refine it with module info.
func derivePackageFromFile(file string) string {
	if file == "" {
		return ""
	}
	idx := strings.LastIndex(file, "/")
	if idx < 0 {
		return "."
	}
	return file[:idx]
}

// firstLine returns the first non-empty line of s, trimmed,
// skipping test framework boilerplate lines.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "=== RUN") && !strings.HasPrefix(line, "--- FAIL") {
			return line
		}
	}
	return ""
}
