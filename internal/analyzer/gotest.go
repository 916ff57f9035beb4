package analyzer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/deixis/verdict/internal/report"
	"github.com/deixis/verdict/internal/runner"
)

// GoTest parses `go test -json` output. Lines that are not JSON, such as
// compiler errors printed by older toolchains, are parsed as go build
// output. A line that starts like a JSON object but does not decode is a
// parse error.
type GoTest struct{}

// test2jsonEvent represents a single event from `go test -json`.
type test2jsonEvent struct {
	Action     string  `json:"Action"`
	Package    string  `json:"Package"`
	Test       string  `json:"Test"`
	Output     string  `json:"Output"`
	Elapsed    float64 `json:"Elapsed"`
	ImportPath string  `json:"ImportPath"`
}

// testPosition matches the "    foo_test.go:12: message" lines written by t.Error.
var testPosition = regexp.MustCompile(`(?m)^[ \t]*(\S+?_test\.go):(\d+):`)

type testKey struct{ pkg, test string }

func (GoTest) Build(lines []runner.Line) (*report.Report, error) {
	r := report.New()
	text := &goBuildParser{source: "gotest"}

	outputs := make(map[testKey]*strings.Builder)
	var failedTests []testKey

	buildOutputs := make(map[string]*strings.Builder)
	var failedBuilds []string

	for i, l := range lines {
		content := strings.TrimSpace(l.Content)
		if content == "" {
			continue
		}
		if !strings.HasPrefix(content, "{") {
			if d, ok := text.parse(l.Content); ok {
				r.Add(d)
			}
			continue
		}

		var ev test2jsonEvent
		if err := json.Unmarshal([]byte(content), &ev); err != nil {
			return nil, fmt.Errorf("line %d: decoding test event: %w", i+1, err)
		}

		key := testKey{ev.Package, ev.Test}

		switch ev.Action {
		case "output":
			if ev.Test != "" {
				if _, ok := outputs[key]; !ok {
					outputs[key] = &strings.Builder{}
				}
				outputs[key].WriteString(ev.Output)
			}
		case "fail":
			if ev.Test != "" {
				failedTests = append(failedTests, key)
			}
		case "build-output":
			ip := ev.ImportPath
			if ip == "" {
				ip = ev.Package
			}
			if ip != "" {
				if _, ok := buildOutputs[ip]; !ok {
					buildOutputs[ip] = &strings.Builder{}
				}
				buildOutputs[ip].WriteString(ev.Output)
			}
		case "build-fail":
			ip := ev.ImportPath
			if ip == "" {
				ip = ev.Package
			}
			if ip != "" {
				failedBuilds = append(failedBuilds, ip)
			}
		}
	}

	for _, ip := range failedBuilds {
		addBuildFailure(r, ip, buildOutputs[ip])
	}

	for _, key := range failedTests {
		output := ""
		if b, ok := outputs[key]; ok {
			output = b.String()
		}
		d := report.Line{
			Kind:    report.TestFail,
			Source:  "gotest",
			Package: key.pkg,
			Symbol:  key.test,
			Message: firstLine(output),
			Output:  output,
		}
		if d.Message == "" {
			d.Message = "test failed"
		}
		if m := testPosition.FindStringSubmatch(output); m != nil {
			d.File = m[1]
			d.Line, _ = strconv.Atoi(m[2])
		}
		r.Add(d)
	}

	return r, nil
}

// addBuildFailure records a build-fail event. Compiler lines in the build
// output become individual errors; if none parse, the whole output is
// kept as a single error.
func addBuildFailure(r *report.Report, importPath string, out *strings.Builder) {
	output := ""
	if out != nil {
		output = strings.TrimRight(out.String(), "\n")
	}

	p := &goBuildParser{source: "gotest", pkg: importPath}
	found := false
	for _, line := range strings.Split(output, "\n") {
		if d, ok := p.parse(line); ok {
			r.Add(d)
			found = true
		}
	}
	if found {
		return
	}
	r.Add(report.Line{
		Kind:    report.Error,
		Source:  "gotest",
		Package: importPath,
		Message: "build failed",
		Output:  output,
	})
}
