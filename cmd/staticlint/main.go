// Command staticlint is the project's static analysis tool. It combines
// analyzers from the Go toolchain, third-party analyzers, a selection of
// honnef.co/go/tools checks and the project-specific sqlboundary analyzer into
// a single multichecker.Main invocation.
//
// The honnef.co checks to enable are listed in config.json, looked up next to
// the binary unless STATICLINT_CONFIG points elsewhere:
//
//	{
//		"Staticcheck": ["SA1000", "SA4006"],
//		"Simple": ["S1000"],
//		"Stylecheck": ["ST1005"]
//	}
//
// Usage:
//
//	staticlint ./...
package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	// Standard analyzers from the Go toolchain.
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/nilness"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"

	// Third-party analyzers.
	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"honnef.co/go/tools/analysis/lint"
	"honnef.co/go/tools/simple"
	"honnef.co/go/tools/staticcheck"
	"honnef.co/go/tools/stylecheck"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"

	// Custom analyzer.
	"github.com/patric-chuzhbe/catsapi/cmd/staticlint/sqlboundary"
)

// Config is the name of the JSON configuration file.
const Config = `config.json`

// ConfigData lists the honnef.co analyzers to enable, per suite.
type ConfigData struct {
	Staticcheck []string
	Simple      []string
	Stylecheck  []string
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	// Analyzers that are always run.
	myChecks := []*analysis.Analyzer{
		copylock.Analyzer,     // Checks for copying of locks by value.
		errorsas.Analyzer,     // Checks the second argument of errors.As.
		httpresponse.Analyzer, // Finds response bodies used before the error check.
		loopclosure.Analyzer,  // Detects references to loop variables inside closures.
		lostcancel.Analyzer,   // Finds contexts that are not canceled.
		nilness.Analyzer,      // Reports impossible nil comparisons and nil dereferences.
		printf.Analyzer,       // Verifies format strings.
		structtag.Analyzer,    // Checks for incorrect struct field tags.
		unmarshal.Analyzer,    // Detects non-pointer unmarshal targets.
		unreachable.Analyzer,  // Detects unreachable code.

		ineffassign.Analyzer, // Detects ineffective assignments.
		nilerr.Analyzer,      // Flags returning nil after an error was checked.

		sqlboundary.Analyzer, // Project-specific: keeps SQL inside internal/db.
	}

	myChecks = append(myChecks, selectAnalyzers(staticcheck.Analyzers, cfg.Staticcheck)...)
	myChecks = append(myChecks, selectAnalyzers(simple.Analyzers, cfg.Simple)...)
	myChecks = append(myChecks, selectAnalyzers(stylecheck.Analyzers, cfg.Stylecheck)...)

	multichecker.Main(myChecks...)
}

func loadConfig() (ConfigData, error) {
	path := os.Getenv("STATICLINT_CONFIG")
	if path == "" {
		appfile, err := os.Executable()
		if err != nil {
			return ConfigData{}, err
		}
		path = filepath.Join(filepath.Dir(appfile), Config)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ConfigData{}, err
	}

	var cfg ConfigData
	if err = json.Unmarshal(data, &cfg); err != nil {
		return ConfigData{}, err
	}

	return cfg, nil
}

func selectAnalyzers(suite []*lint.Analyzer, names []string) []*analysis.Analyzer {
	enabled := make(map[string]bool, len(names))
	for _, name := range names {
		enabled[name] = true
	}

	var selected []*analysis.Analyzer
	for _, v := range suite {
		if enabled[v.Analyzer.Name] {
			selected = append(selected, v.Analyzer)
		}
	}

	return selected
}
