package report

import "strings"

// ByPackage returns all lines for a given package import path.
func (r *Report) ByPackage(pkg string) []Line {
	var out []Line
	for _, l := range r.Lines {
		if l.Package == pkg {
			out = append(out, l)
		}
	}
	return out
}

// BySymbol returns lines matching a Go-qualified symbol.
// If sym contains a "." after the last "/" segment, it is treated as
// package.Symbol (e.g. "example.com/foo.TestAdd"). Otherwise it is
// treated as a bare package path and returns all lines of that package.
func (r *Report) BySymbol(sym string) []Line {
	pkg, name := splitSymbol(sym)
	if name == "" {
		return r.ByPackage(pkg)
	}

	var out []Line
	for _, l := range r.Lines {
		if l.Package == pkg && l.Symbol == name {
			out = append(out, l)
		}
	}
	return out
}

// ByFile returns lines whose file equals file or ends with "/"+file.
func (r *Report) ByFile(file string) []Line {
	var out []Line
	for _, l := range r.Lines {
		if l.File == file || strings.HasSuffix(l.File, "/"+file) {
			out = append(out, l)
		}
	}
	return out
}

// Filter resolves a free-form query. Queries ending in ".go" match files;
// anything else is tried as a symbol first, then as a file.
func (r *Report) Filter(query string) []Line {
	if strings.HasSuffix(query, ".go") {
		return r.ByFile(query)
	}
	if out := r.BySymbol(query); len(out) > 0 {
		return out
	}
	return r.ByFile(query)
}

// splitSymbol splits a Go-qualified symbol into package path and symbol name.
// "example.com/foo.TestAdd" → ("example.com/foo", "TestAdd")
// "example.com/foo" → ("example.com/foo", "")
func splitSymbol(sym string) (string, string) {
	lastSlash := strings.LastIndex(sym, "/")
	afterSlash := sym[lastSlash+1:]
	dotIdx := strings.Index(afterSlash, ".")
	if dotIdx < 0 {
		return sym, ""
	}
	pkg := sym[:lastSlash+1+dotIdx]
	name := afterSlash[dotIdx+1:]
	return pkg, name
}
