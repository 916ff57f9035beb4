package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deixis/verdict/internal/report"
	"github.com/deixis/verdict/internal/runner"
)

// Staticcheck parses `staticcheck -f json` output, one JSON object per line.
type Staticcheck struct{}

// staticcheckEvent represents a single JSON line from `staticcheck -f json`.
type staticcheckEvent struct {
	Code     string              `json:"code"`
	Severity string              `json:"severity"`
	Message  string              `json:"message"`
	Location staticcheckLocation `json:"location"`
	End      staticcheckLocation `json:"end"`
}

type staticcheckLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func (Staticcheck) Build(lines []runner.Line) (*report.Report, error) {
	r := report.New()
	for i, l := range lines {
		if l.Stream != runner.Stdout {
			continue
		}
		content := strings.TrimSpace(l.Content)
		if !strings.HasPrefix(content, "{") {
			continue
		}
		var ev staticcheckEvent
		if err := json.Unmarshal([]byte(content), &ev); err != nil {
			return nil, fmt.Errorf("line %d: decoding staticcheck event: %w", i+1, err)
		}
		if ev.Code == "" {
			continue
		}

		var kind report.Kind
		switch ev.Severity {
		case "ignored":
			continue
		case "warning":
			kind = report.Warning
		default:
			kind = report.Error
		}

		r.Add(report.Line{
			Kind:    kind,
			Source:  "staticcheck",
			Package: derivePackageFromFile(ev.Location.File),
			File:    ev.Location.File,
			Line:    ev.Location.Line,
			Col:     ev.Location.Column,
			Code:    ev.Code,
			Message: ev.Message,
		})
	}
	return r, nil
}
