package yamlmanifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type yamlPipeline struct {
	Name    string            `yaml:"name"`
	Vars    map[string]string `yaml:"vars"`
	Library yamlLibrary       `yaml:"library"`
	Matrix  yamlMatrix        `yaml:"matrix"`
	Jobs    []yamlJob         `yaml:"jobs"`
}

type yamlLibrary struct {
	Name         string   `yaml:"name"`
	MinVersion   string   `yaml:"min_version"`
	Symbols      []string `yaml:"symbols"`
	SonamePrefix string   `yaml:"soname_prefix"`
}

type yamlMatrix struct {
	Axes    yamlAxes                  `yaml:"axes"`
	Include []map[string]string       `yaml:"include"`
	Exclude []map[string]stringOrList `yaml:"exclude"`
}

type yamlAxis struct {
	Name   string
	Values []string
}

// yamlAxes preserves the axis declaration order of the manifest; a plain map
// would lose it and make matrix expansion non-deterministic.
type yamlAxes []yamlAxis

func (a *yamlAxes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("axes must map axis names to value lists")
	}
	out := make(yamlAxes, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return err
		}
		var values []string
		if err := node.Content[i+1].Decode(&values); err != nil {
			return fmt.Errorf("axis %q: %w", name, err)
		}
		out = append(out, yamlAxis{Name: name, Values: values})
	}
	*a = out
	return nil
}

// stringOrList accepts either a scalar or a sequence of scalars.
type stringOrList []string

func (s *stringOrList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = stringOrList{v}
		return nil
	case yaml.SequenceNode:
		var v []string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = stringOrList(v)
		return nil
	default:
		return fmt.Errorf("expected a string or a list of strings")
	}
}

type yamlJob struct {
	Name    string                  `yaml:"name"`
	Only    map[string]stringOrList `yaml:"only"`
	Env     map[string]string       `yaml:"env"`
	Isolate bool                    `yaml:"isolate"`
	Workdir string                  `yaml:"workdir"`
	Timeout string                  `yaml:"timeout"`
	Steps   []yamlStep              `yaml:"steps"`
	Checks  YAMLChecks              `yaml:"checks"`
	Gate    yamlGate                `yaml:"gate"`
}

type yamlStep struct {
	Name            string            `yaml:"name"`
	Run             string            `yaml:"run"`
	Env             map[string]string `yaml:"env"`
	Timeout         string            `yaml:"timeout"`
	ContinueOnError bool              `yaml:"continue_on_error"`
}

// YAMLChecks is exported so the check-set plugin loader can round-trip plugin
// payloads through the exact same schema and mapping as manifests.
type YAMLChecks struct {
	Use     []string          `yaml:"use"`
	Symbols *YAMLSymbolsCheck `yaml:"symbols"`
	Report  *YAMLReportCheck  `yaml:"report"`
	Output  *YAMLOutputCheck  `yaml:"output"`
}

type YAMLSymbolsCheck struct {
	Object  string   `yaml:"object"`
	Require []string `yaml:"require"`
}

type YAMLReportCheck struct {
	File  string                    `yaml:"file"`
	Rules map[string]YAMLReportRule `yaml:"rules"`
}

type YAMLReportRule struct {
	Exists   bool     `yaml:"exists"`
	Eq       *string  `yaml:"eq"`
	Contains *string  `yaml:"contains"`
	Matches  *string  `yaml:"matches"`
	Gt       *float64 `yaml:"gt"`
	Lt       *float64 `yaml:"lt"`
}

type YAMLOutputCheck struct {
	Contains    []string `yaml:"contains"`
	NotContains []string `yaml:"not_contains"`
	Matches     []string `yaml:"matches"`
}

type yamlGate struct {
	SkipWhenOutputMatches []string          `yaml:"skip_when_output_matches"`
	MinVersionProbe       *yamlVersionProbe `yaml:"min_version_probe"`
}

type yamlVersionProbe struct {
	Run     string `yaml:"run"`
	Pattern string `yaml:"pattern"`
}
