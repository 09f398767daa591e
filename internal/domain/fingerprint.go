package domain

import (
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// JobFingerprint digests a resolved (point, job) pair so reruns of the same
// configuration are comparable across artifacts. The encoding is canonical:
// axis order follows the point, env keys are sorted, and every field group
// is length-prefixed by its section tag.
func JobFingerprint(point Point, job JobSpec) string {
	var b strings.Builder

	section := func(tag string, fields ...string) {
		b.WriteString(tag)
		b.WriteByte('\n')
		for _, f := range fields {
			b.WriteString(f)
			b.WriteByte(0)
		}
		b.WriteByte('\n')
	}

	section("point", point.Key())
	section("job", job.Name, job.Workdir, strconv.FormatBool(job.Isolate))

	for _, s := range job.Steps {
		section("step", s.Name, s.Run, strconv.FormatBool(s.ContinueOnError))
		for _, k := range SortedKeys(s.Env) {
			section("step.env", k, s.Env[k])
		}
	}

	for _, k := range SortedKeys(job.Env) {
		section("env", k, job.Env[k])
	}

	if job.Checks.Symbols != nil {
		section("checks.symbols", job.Checks.Symbols.Object, strings.Join(job.Checks.Symbols.Require, ","))
	}
	if job.Checks.Report != nil {
		section("checks.report", job.Checks.Report.File)
		exprs := make([]string, 0, len(job.Checks.Report.Rules))
		for expr := range job.Checks.Report.Rules {
			exprs = append(exprs, expr)
		}
		sort.Strings(exprs)
		for _, expr := range exprs {
			section("checks.report.rule", expr, formatReportRule(job.Checks.Report.Rules[expr]))
		}
	}
	if job.Checks.Output != nil {
		section("checks.output",
			strings.Join(job.Checks.Output.Contains, ","),
			strings.Join(job.Checks.Output.NotContains, ","),
			strings.Join(job.Checks.Output.Matches, ","))
	}

	section("gate", strings.Join(job.Gate.SkipWhenOutputMatches, ","))
	if job.Gate.MinVersionProbe != nil {
		section("gate.probe", job.Gate.MinVersionProbe.Run, job.Gate.MinVersionProbe.Pattern)
	}

	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func formatReportRule(r ReportRule) string {
	parts := []string{strconv.FormatBool(r.Exists)}
	appendStr := func(v *string) {
		if v == nil {
			parts = append(parts, "")
			return
		}
		parts = append(parts, *v)
	}
	appendFloat := func(v *float64) {
		if v == nil {
			parts = append(parts, "")
			return
		}
		parts = append(parts, strconv.FormatFloat(*v, 'f', -1, 64))
	}
	appendStr(r.Eq)
	appendStr(r.Contains)
	appendStr(r.Matches)
	appendFloat(r.Gt)
	appendFloat(r.Lt)
	return strings.Join(parts, "|")
}
