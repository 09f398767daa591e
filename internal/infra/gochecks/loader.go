// Package gochecks loads named check sets from interpreted Go files in the
// workspace checks directory. Plugins stay plain Go source; no build step,
// no .so loading.
package gochecks

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"

	"bindkit/internal/domain"
	"bindkit/internal/infra/yamlmanifest"
	"bindkit/internal/ports"
)

// checkSetsFuncName is the symbol every plugin file must export. It returns
// set name to YAML payload, the payload using the manifest checks schema.
const checkSetsFuncName = "CheckSets"

type Loader struct {
	rootDir       string
	checksDirName string
}

func NewLoader(root string, cfg domain.Config) *Loader {
	dir := cfg.Paths.ChecksDir
	if strings.TrimSpace(dir) == "" {
		dir = "checks"
	}
	return &Loader{rootDir: root, checksDirName: dir}
}

var _ ports.CheckSetLoader = (*Loader)(nil)

// LoadCheckSets evaluates every .go file in the checks directory and merges
// their contributed sets. A missing directory means no plugins. Duplicate set
// names across files are an error rather than a silent override.
func (l *Loader) LoadCheckSets() (map[string]domain.ChecksSpec, error) {
	dir := filepath.Join(l.rootDir, l.checksDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]domain.ChecksSpec{}, nil
		}
		return nil, &domain.OpError{
			Op:   "gochecks.read",
			Kind: domain.KindExecution,
			Path: dir,
			Err:  err,
		}
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".go" {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)

	sets := map[string]domain.ChecksSpec{}
	owner := map[string]string{}
	for _, path := range files {
		fileSets, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		for name, spec := range fileSets {
			if prev, dup := owner[name]; dup {
				return nil, invalidPlugin(path, fmt.Errorf("check set %q already defined in %s", name, prev))
			}
			owner[name] = path
			sets[name] = spec
		}
	}
	return sets, nil
}

func loadFile(path string) (map[string]domain.ChecksSpec, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, invalidPlugin(path, err)
	}
	if len(strings.TrimSpace(string(code))) == 0 {
		return nil, invalidPlugin(path, fmt.Errorf("file is empty"))
	}

	// The interpreter namespaces non-main packages, so the symbol must be
	// qualified with whatever package the plugin file declares.
	clause, err := parser.ParseFile(token.NewFileSet(), path, code, parser.PackageClauseOnly)
	if err != nil {
		return nil, invalidPlugin(path, fmt.Errorf("interpret: %w", err))
	}
	symbol := checkSetsFuncName
	if pkg := clause.Name.Name; pkg != "main" {
		symbol = pkg + "." + checkSetsFuncName
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, invalidPlugin(path, err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return nil, invalidPlugin(path, fmt.Errorf("interpret: %w", err))
	}
	fnValue, err := i.Eval(symbol)
	if err != nil {
		return nil, invalidPlugin(path, fmt.Errorf("must define %s() map[string]string: %w", checkSetsFuncName, err))
	}

	payloads, err := invokeCheckSetsFunc(fnValue)
	if err != nil {
		return nil, invalidPlugin(path, err)
	}

	sets := make(map[string]domain.ChecksSpec, len(payloads))
	for name, payload := range payloads {
		if strings.TrimSpace(name) == "" {
			return nil, invalidPlugin(path, fmt.Errorf("check set with empty name"))
		}

		var yc yamlmanifest.YAMLChecks
		if err := yaml.Unmarshal(payload, &yc); err != nil {
			return nil, invalidPlugin(path, fmt.Errorf("check set %q: %w", name, err))
		}
		if len(yc.Use) > 0 {
			return nil, invalidPlugin(path, fmt.Errorf("check set %q: plugin sets may not reference other sets", name))
		}

		spec, err := yamlmanifest.MapChecks(path, fmt.Sprintf("checks[%s]", name), yc)
		if err != nil {
			return nil, err
		}
		if spec.Empty() {
			return nil, invalidPlugin(path, fmt.Errorf("check set %q declares no checks", name))
		}
		sets[name] = spec
	}
	return sets, nil
}

// invokeCheckSetsFunc calls the plugin function and normalizes its return
// value to YAML payloads. String values are taken verbatim; map values are
// re-marshaled, so both payload styles work.
func invokeCheckSetsFunc(value reflect.Value) (map[string][]byte, error) {
	if !value.IsValid() {
		return nil, fmt.Errorf("missing %s function", checkSetsFuncName)
	}
	if value.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", checkSetsFuncName)
	}
	if value.Type().NumIn() != 0 {
		return nil, fmt.Errorf("%s must take no arguments", checkSetsFuncName)
	}

	results := value.Call(nil)
	if len(results) != 1 {
		return nil, fmt.Errorf("%s must return a single map", checkSetsFuncName)
	}
	ret := results[0]
	if ret.Kind() == reflect.Interface {
		ret = ret.Elem()
	}
	if !ret.IsValid() || ret.Kind() != reflect.Map {
		return nil, fmt.Errorf("%s must return a map keyed by set name", checkSetsFuncName)
	}

	out := make(map[string][]byte, ret.Len())
	iter := ret.MapRange()
	for iter.Next() {
		key, ok := iter.Key().Interface().(string)
		if !ok {
			return nil, fmt.Errorf("%s keys must be strings", checkSetsFuncName)
		}
		val := iter.Value()
		if val.Kind() == reflect.Interface {
			val = val.Elem()
		}
		switch val.Kind() {
		case reflect.String:
			out[key] = []byte(val.String())
		case reflect.Map:
			b, err := yaml.Marshal(val.Interface())
			if err != nil {
				return nil, fmt.Errorf("check set %q: %w", key, err)
			}
			out[key] = b
		default:
			return nil, fmt.Errorf("check set %q must be a YAML string or a map", key)
		}
	}
	return out, nil
}

func invalidPlugin(path string, err error) error {
	return &domain.OpError{
		Op:   "gochecks.load",
		Kind: domain.KindInvalidConfig,
		Path: path,
		Err:  err,
	}
}
