package analyzer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/deixis/verdict/internal/report"
	"github.com/deixis/verdict/internal/runner"
)

// GoBuild parses the plain-text output of go build and go vet:
// "# pkg" headers followed by "file.go:line:col: message" lines. Generic
// level prefixes are recognised too. It never fails.
type GoBuild struct{}

// goPosition matches "./foo/bar.go:12:3: message" with an optional column.
var goPosition = regexp.MustCompile(`^(\S+?\.go):(\d+)(?::(\d+))?:\s*(.*)$`)

func (GoBuild) Build(lines []runner.Line) (*report.Report, error) {
	r := report.New()
	p := &goBuildParser{source: "gobuild"}
	for _, l := range lines {
		if d, ok := p.parse(l.Content); ok {
			r.Add(d)
		}
	}
	return r, nil
}

// goBuildParser carries the current "# pkg" header across lines.
type goBuildParser struct {
	source string
	pkg    string
}

func (p *goBuildParser) parse(content string) (report.Line, bool) {
	content = strings.TrimRight(content, " \t")
	if pkg, ok := strings.CutPrefix(content, "# "); ok {
		p.pkg = strings.TrimSpace(pkg)
		return report.Line{}, false
	}

	if m := goPosition.FindStringSubmatch(strings.TrimSpace(content)); m != nil {
		file := strings.TrimPrefix(m[1], "./")
		line, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		d := report.Line{
			Kind:    report.Error,
			Source:  p.source,
			Package: p.pkg,
			File:    file,
			Line:    line,
			Col:     col,
			Message: m[4],
		}
		if msg, ok := strings.CutPrefix(d.Message, "warning: "); ok {
			d.Kind = report.Warning
			d.Message = msg
		}
		if d.Package == "" {
			d.Package = derivePackageFromFile(file)
		}
		return d, true
	}

	if d, ok := parseLevelPrefix(content, p.source); ok {
		d.Package = p.pkg
		return d, true
	}
	return report.Line{}, false
}
