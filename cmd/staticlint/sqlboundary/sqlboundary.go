package sqlboundary

import (
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Analyzer reports database/sql query and exec calls made outside the
// storage packages (import paths containing "/internal/db"). Handlers and
// services must go through a repository instead of issuing SQL themselves.
var Analyzer = &analysis.Analyzer{
	Name: "sqlboundary",
	Doc:  "prohibits database/sql queries outside internal/db packages",
	Run:  run,
}

var queryMethods = map[string]bool{
	"Exec":            true,
	"ExecContext":     true,
	"Query":           true,
	"QueryContext":    true,
	"QueryRow":        true,
	"QueryRowContext": true,
}

func run(pass *analysis.Pass) (interface{}, error) {
	if isStoragePackage(pass.Pkg.Path()) {
		return nil, nil
	}

	for _, file := range pass.Files {
		// Exclude go-build cache files
		filename := pass.Fset.File(file.Pos()).Name()
		if isGoBuildCacheFile(filename) {
			continue
		}

		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok || !queryMethods[sel.Sel.Name] {
				return true
			}

			selection, ok := pass.TypesInfo.Selections[sel]
			if !ok {
				return true
			}

			fn, ok := selection.Obj().(*types.Func)
			if ok && fn.Pkg() != nil && fn.Pkg().Path() == "database/sql" {
				pass.Reportf(call.Pos(), "SQL call %s outside internal/db, use a repository", sel.Sel.Name)
			}

			return true
		})
	}

	return nil, nil
}

func isStoragePackage(path string) bool {
	return strings.Contains(path, "/internal/db")
}

func isGoBuildCacheFile(path string) bool {
	path = filepath.ToSlash(path)
	return strings.Contains(path, "/go-build/") || strings.Contains(path, `\go-build\`)
}
