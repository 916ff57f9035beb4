package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deixis/verdict/internal/report"
	"github.com/deixis/verdict/internal/runner"
)

// GolangCI parses the JSON document golangci-lint writes to stdout.
// Non-empty stdout without a decodable document is a parse error.
type GolangCI struct{}

// golangciLintOutput is the top-level JSON output from golangci-lint.
type golangciLintOutput struct {
	Issues []golangciLintIssue `json:"Issues"`
	Report struct {
		Error string `json:"Error"`
	} `json:"Report"`
}

type golangciLintIssue struct {
	FromLinter string          `json:"FromLinter"`
	Text       string          `json:"Text"`
	Severity   string          `json:"Severity"`
	Pos        golangciLintPos `json:"Pos"`
}

type golangciLintPos struct {
	Filename string `json:"Filename"`
	Line     int    `json:"Line"`
	Column   int    `json:"Column"`
}

func (GolangCI) Build(lines []runner.Line) (*report.Report, error) {
	r := report.New()

	var doc string
	sawStdout := false
	for _, l := range lines {
		if l.Stream != runner.Stdout {
			continue
		}
		content := strings.TrimSpace(l.Content)
		if content == "" {
			continue
		}
		sawStdout = true
		if strings.HasPrefix(content, "{") {
			doc = content
			break
		}
	}
	if doc == "" {
		if sawStdout {
			return nil, fmt.Errorf("no JSON document in golangci-lint output")
		}
		return r, nil
	}

	var out golangciLintOutput
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return nil, fmt.Errorf("decoding golangci-lint output: %w", err)
	}

	for _, issue := range out.Issues {
		kind := report.Error
		if strings.EqualFold(issue.Severity, "warning") {
			kind = report.Warning
		}
		r.Add(report.Line{
			Kind:    kind,
			Source:  "golangci",
			Package: derivePackageFromFile(issue.Pos.Filename),
			File:    issue.Pos.Filename,
			Line:    issue.Pos.Line,
			Col:     issue.Pos.Column,
			Code:    issue.FromLinter,
			Message: issue.Text,
		})
	}
	if out.Report.Error != "" {
		r.Add(report.Line{
			Kind:    report.Error,
			Source:  "golangci",
			Message: out.Report.Error,
		})
	}

	return r, nil
}
