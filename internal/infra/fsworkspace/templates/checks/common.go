// Package checks contributes named check sets to every pipeline in this
// workspace. Files here are interpreted at run time; CheckSets returns YAML
// payloads using the same schema as the checks block of a pipeline manifest.
package checks

func CheckSets() map[string]string {
	return map[string]string{
		"no-traceback": `
output:
  not_contains:
    - "Traceback (most recent call last)"
`,
		"coverage": `
report:
  file: report.json
  rules:
    $.totals.percent_covered:
      gt: 80
`,
	}
}
