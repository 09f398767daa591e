// Package checks evaluates a job's post-step checks: exported symbols of a
// built object, JSONPath rules over a report file, and captured-output
// patterns. Every rule yields a CheckResult; evaluation never aborts early.
package checks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"bindkit/internal/domain"
	"bindkit/internal/ports"
)

// Target carries everything a check may inspect. Dir anchors relative
// object/report paths. ReadFile defaults to os.ReadFile.
type Target struct {
	Dir       string
	Output    []byte
	Inspector ports.ObjectInspector
	ReadFile  func(string) ([]byte, error)
}

// Evaluate applies the checks spec against the target.
func Evaluate(spec domain.ChecksSpec, target Target) []domain.CheckResult {
	if target.ReadFile == nil {
		target.ReadFile = os.ReadFile
	}

	var out []domain.CheckResult
	if spec.Symbols != nil {
		out = append(out, Symbols(*spec.Symbols, target)...)
	}
	if spec.Report != nil {
		out = append(out, Report(*spec.Report, target)...)
	}
	if spec.Output != nil {
		out = append(out, Output(*spec.Output, target.Output)...)
	}
	return out
}

// Symbols verifies the required dynamic symbols of the built object, one
// result per symbol, plus a single failure when the object cannot be read.
func Symbols(spec domain.SymbolsCheck, target Target) []domain.CheckResult {
	if target.Inspector == nil {
		return []domain.CheckResult{{
			Name:    "symbols",
			Passed:  false,
			Message: "no object inspector available",
		}}
	}

	path := spec.Object
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(target.Dir, path)
	}

	report, err := target.Inspector.Inspect(path, spec.Require)
	if err != nil {
		return []domain.CheckResult{{
			Name:    "symbols",
			Passed:  false,
			Message: fmt.Sprintf("inspect %q: %v", spec.Object, err),
		}}
	}

	present := make(map[string]bool, len(report.Present))
	for _, s := range report.Present {
		present[s] = true
	}

	out := make([]domain.CheckResult, 0, len(spec.Require))
	for _, sym := range spec.Require {
		if present[sym] {
			out = append(out, domain.CheckResult{
				Name:    "symbols." + sym,
				Passed:  true,
				Message: fmt.Sprintf("%s exports %s", filepath.Base(report.Path), sym),
			})
			continue
		}
		out = append(out, domain.CheckResult{
			Name:    "symbols." + sym,
			Passed:  false,
			Message: fmt.Sprintf("%s does not export %s", filepath.Base(report.Path), sym),
		})
	}
	return out
}

// Report parses the report file and applies its JSONPath rules in a stable
// (sorted) order.
func Report(spec domain.ReportCheck, target Target) []domain.CheckResult {
	readFile := target.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}

	path := spec.File
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(target.Dir, path)
	}

	exprs := make([]string, 0, len(spec.Rules))
	for expr := range spec.Rules {
		exprs = append(exprs, expr)
	}
	sort.Strings(exprs)

	body, err := readFile(path)
	if err != nil {
		return []domain.CheckResult{{
			Name:    "report",
			Passed:  false,
			Message: fmt.Sprintf("read report %q: %v", spec.File, err),
		}}
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		out := make([]domain.CheckResult, 0, len(exprs))
		for _, expr := range exprs {
			out = append(out, rulesFor(expr, spec.Rules[expr], nil,
				fmt.Errorf("report is not valid JSON"))...)
		}
		return out
	}

	var out []domain.CheckResult
	for _, expr := range exprs {
		val, getErr := jsonpath.Get(expr, doc)
		out = append(out, rulesFor(expr, spec.Rules[expr], val, getErr)...)
	}
	return out
}

// Output applies the contains / not_contains / matches patterns to the
// combined step output.
func Output(spec domain.OutputCheck, output []byte) []domain.CheckResult {
	text := string(output)
	var out []domain.CheckResult

	for _, want := range spec.Contains {
		if strings.Contains(text, want) {
			out = append(out, domain.CheckResult{
				Name:    "output.contains",
				Passed:  true,
				Message: fmt.Sprintf("output contains %q", want),
			})
			continue
		}
		out = append(out, domain.CheckResult{
			Name:    "output.contains",
			Passed:  false,
			Message: fmt.Sprintf("output does not contain %q", want),
		})
	}

	for _, banned := range spec.NotContains {
		if strings.Contains(text, banned) {
			out = append(out, domain.CheckResult{
				Name:    "output.not_contains",
				Passed:  false,
				Message: fmt.Sprintf("output contains banned %q", banned),
			})
			continue
		}
		out = append(out, domain.CheckResult{
			Name:    "output.not_contains",
			Passed:  true,
			Message: fmt.Sprintf("output clean of %q", banned),
		})
	}

	for _, pattern := range spec.Matches {
		re, err := regexp.Compile(pattern)
		if err != nil {
			out = append(out, domain.CheckResult{
				Name:    "output.matches",
				Passed:  false,
				Message: fmt.Sprintf("invalid regex %q: %v", pattern, err),
			})
			continue
		}
		if re.MatchString(text) {
			out = append(out, domain.CheckResult{
				Name:    "output.matches",
				Passed:  true,
				Message: fmt.Sprintf("output matches %q", pattern),
			})
			continue
		}
		out = append(out, domain.CheckResult{
			Name:    "output.matches",
			Passed:  false,
			Message: fmt.Sprintf("output does not match %q", pattern),
		})
	}

	return out
}

// Failed counts the results that did not pass.
func Failed(results []domain.CheckResult) int {
	n := 0
	for _, r := range results {
		if !r.Passed {
			n++
		}
	}
	return n
}

func rulesFor(expr string, rule domain.ReportRule, val any, getErr error) []domain.CheckResult {
	var out []domain.CheckResult
	if rule.Exists {
		out = append(out, checkExists(expr, val, getErr))
	}
	if rule.Eq != nil {
		out = append(out, checkEq(expr, val, getErr, *rule.Eq))
	}
	if rule.Contains != nil {
		out = append(out, checkContains(expr, val, getErr, *rule.Contains))
	}
	if rule.Matches != nil {
		out = append(out, checkMatches(expr, val, getErr, *rule.Matches))
	}
	if rule.Gt != nil {
		out = append(out, checkGt(expr, val, getErr, *rule.Gt))
	}
	if rule.Lt != nil {
		out = append(out, checkLt(expr, val, getErr, *rule.Lt))
	}
	return out
}

func checkExists(expr string, val any, getErr error) domain.CheckResult {
	if getErr != nil {
		return domain.CheckResult{
			Name:    "report.exists",
			Passed:  false,
			Message: fmt.Sprintf("rule %q: %v", expr, getErr),
		}
	}
	if isEmptyValue(val) {
		return domain.CheckResult{
			Name:    "report.exists",
			Passed:  false,
			Message: fmt.Sprintf("rule %q: expected value to exist, got empty", expr),
		}
	}
	return domain.CheckResult{
		Name:    "report.exists",
		Passed:  true,
		Message: fmt.Sprintf("rule %q exists", expr),
	}
}

func checkEq(expr string, val any, getErr error, expected string) domain.CheckResult {
	s, result := valueAsString("report.eq", expr, val, getErr)
	if result != nil {
		return *result
	}
	if s == expected {
		return domain.CheckResult{
			Name:    "report.eq",
			Passed:  true,
			Message: fmt.Sprintf("rule %q eq %q", expr, expected),
		}
	}
	return domain.CheckResult{
		Name:    "report.eq",
		Passed:  false,
		Message: fmt.Sprintf("rule %q: expected %q, got %q", expr, expected, s),
	}
}

func checkContains(expr string, val any, getErr error, sub string) domain.CheckResult {
	s, result := valueAsString("report.contains", expr, val, getErr)
	if result != nil {
		return *result
	}
	if strings.Contains(s, sub) {
		return domain.CheckResult{
			Name:    "report.contains",
			Passed:  true,
			Message: fmt.Sprintf("rule %q contains %q", expr, sub),
		}
	}
	return domain.CheckResult{
		Name:    "report.contains",
		Passed:  false,
		Message: fmt.Sprintf("rule %q: %q does not contain %q", expr, s, sub),
	}
}

func checkMatches(expr string, val any, getErr error, pattern string) domain.CheckResult {
	s, result := valueAsString("report.matches", expr, val, getErr)
	if result != nil {
		return *result
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return domain.CheckResult{
			Name:    "report.matches",
			Passed:  false,
			Message: fmt.Sprintf("rule %q: invalid regex %q: %v", expr, pattern, err),
		}
	}
	if re.MatchString(s) {
		return domain.CheckResult{
			Name:    "report.matches",
			Passed:  true,
			Message: fmt.Sprintf("rule %q matches %q", expr, pattern),
		}
	}
	return domain.CheckResult{
		Name:    "report.matches",
		Passed:  false,
		Message: fmt.Sprintf("rule %q: %q does not match %q", expr, s, pattern),
	}
}

func checkGt(expr string, val any, getErr error, threshold float64) domain.CheckResult {
	f, result := valueAsFloat("report.gt", expr, val, getErr)
	if result != nil {
		return *result
	}
	if f > threshold {
		return domain.CheckResult{
			Name:    "report.gt",
			Passed:  true,
			Message: fmt.Sprintf("rule %q: %v > %v", expr, f, threshold),
		}
	}
	return domain.CheckResult{
		Name:    "report.gt",
		Passed:  false,
		Message: fmt.Sprintf("rule %q: expected > %v, got %v", expr, threshold, f),
	}
}

func checkLt(expr string, val any, getErr error, threshold float64) domain.CheckResult {
	f, result := valueAsFloat("report.lt", expr, val, getErr)
	if result != nil {
		return *result
	}
	if f < threshold {
		return domain.CheckResult{
			Name:    "report.lt",
			Passed:  true,
			Message: fmt.Sprintf("rule %q: %v < %v", expr, f, threshold),
		}
	}
	return domain.CheckResult{
		Name:    "report.lt",
		Passed:  false,
		Message: fmt.Sprintf("rule %q: expected < %v, got %v", expr, threshold, f),
	}
}

func valueAsString(name, expr string, val any, getErr error) (string, *domain.CheckResult) {
	if getErr != nil {
		return "", &domain.CheckResult{
			Name:    name,
			Passed:  false,
			Message: fmt.Sprintf("rule %q: %v", expr, getErr),
		}
	}
	s, err := toString(val)
	if err != nil {
		return "", &domain.CheckResult{
			Name:    name,
			Passed:  false,
			Message: fmt.Sprintf("rule %q: %v", expr, err),
		}
	}
	return s, nil
}

func valueAsFloat(name, expr string, val any, getErr error) (float64, *domain.CheckResult) {
	if getErr != nil {
		return 0, &domain.CheckResult{
			Name:    name,
			Passed:  false,
			Message: fmt.Sprintf("rule %q: %v", expr, getErr),
		}
	}
	f, err := toFloat64(val)
	if err != nil {
		return 0, &domain.CheckResult{
			Name:    name,
			Passed:  false,
			Message: fmt.Sprintf("rule %q: %v", expr, err),
		}
	}
	return f, nil
}

func toString(val any) (string, error) {
	switch v := val.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "", fmt.Errorf("value is null")
	default:
		return fmt.Sprint(v), nil
	}
}

func toFloat64(val any) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value of type %T is not numeric", val)
	}
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
