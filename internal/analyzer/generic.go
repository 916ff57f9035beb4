package analyzer

import (
	"regexp"
	"strings"

	"github.com/deixis/verdict/internal/report"
	"github.com/deixis/verdict/internal/runner"
)

// Generic recognises the "error: msg", "error[CODE]: msg", "warning: msg"
// and "note: msg" prefixes shared by most compilers. It never fails.
type Generic struct{}

// levelPrefix matches "error: msg", "error[E0384]: msg", "warning: msg".
var levelPrefix = regexp.MustCompile(`(?i)^(error|warning|note)(?:\[([^\]]+)\])?:\s*(.*)$`)

func (Generic) Build(lines []runner.Line) (*report.Report, error) {
	r := report.New()
	for _, l := range lines {
		if d, ok := parseLevelPrefix(l.Content, "generic"); ok {
			r.Add(d)
		}
	}
	return r, nil
}

func parseLevelPrefix(content, source string) (report.Line, bool) {
	m := levelPrefix.FindStringSubmatch(strings.TrimSpace(content))
	if m == nil {
		return report.Line{}, false
	}
	var kind report.Kind
	switch strings.ToLower(m[1]) {
	case "error":
		kind = report.Error
	case "warning":
		kind = report.Warning
	default:
		kind = report.Note
	}
	return report.Line{
		Kind:    kind,
		Source:  source,
		Code:    m[2],
		Message: m[3],
	}, true
}
