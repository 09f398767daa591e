package runstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bindkit/internal/domain"
	"bindkit/internal/ports"
)

const defaultRunsDir = "runs"
const maskValue = "********"

type JSONStore struct {
	rootDir        string
	runsDirName    string
	maskingEnabled bool
	writeIndex     bool
	now            func() time.Time
}

type Option func(*JSONStore)

// WithIndex enables a simple JSONL index: runs/index.jsonl
func WithIndex(enabled bool) Option {
	return func(s *JSONStore) { s.writeIndex = enabled }
}

// WithNow is useful for tests.
func WithNow(now func() time.Time) Option {
	return func(s *JSONStore) { s.now = now }
}

func NewJSONStore(root string, cfg domain.Config, opts ...Option) *JSONStore {
	runsDir := cfg.Paths.RunsDir
	if strings.TrimSpace(runsDir) == "" {
		runsDir = defaultRunsDir
	}

	s := &JSONStore{
		rootDir:        root,
		runsDirName:    runsDir,
		maskingEnabled: cfg.Masking.Enabled,
		writeIndex:     false,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.ArtifactStore = (*JSONStore)(nil)

func (s *JSONStore) SaveRun(run domain.RunArtifact) (string, error) {
	dir := filepath.Join(s.rootDir, s.runsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &domain.OpError{
			Op:   "runstore.mkdir",
			Kind: domain.KindExecution,
			Path: dir,
			Err:  err,
		}
	}

	ts := run.StartedAt
	if ts.IsZero() {
		ts = s.now()
	}
	ts = ts.UTC()

	toSave := run
	if toSave.StartedAt.IsZero() {
		toSave.StartedAt = ts
	}
	pipelinePart := run.PipelineName
	if strings.TrimSpace(pipelinePart) == "" {
		pipelinePart = strings.TrimSuffix(filepath.Base(run.PipelinePath), filepath.Ext(run.PipelinePath))
	}
	slug := slugify(pipelinePart)
	if slug == "" {
		slug = "run"
	}

	base := fmt.Sprintf("%s_%s", ts.Format("20060102T150405Z"), slug)
	id := base
	path := filepath.Join(dir, id+".json")
	// Two runs of the same pipeline can start within the same second.
	for n := 2; ; n++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			break
		}
		id = fmt.Sprintf("%s_%d", base, n)
		path = filepath.Join(dir, id+".json")
	}
	filename := id + ".json"

	if s.maskingEnabled {
		toSave = maskArtifact(toSave)
	}

	b, err := json.MarshalIndent(toSave, "", "  ")
	if err != nil {
		return "", &domain.OpError{
			Op:   "runstore.marshal",
			Kind: domain.KindExecution,
			Path: path,
			Err:  err,
		}
	}

	// Atomic-ish write: tmp then rename.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return "", &domain.OpError{
			Op:   "runstore.write",
			Kind: domain.KindExecution,
			Path: tmp,
			Err:  err,
		}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", &domain.OpError{
			Op:   "runstore.rename",
			Kind: domain.KindExecution,
			Path: path,
			Err:  err,
		}
	}

	if s.writeIndex {
		_ = s.appendIndex(dir, id, filename, run)
	}

	return id, nil
}

func (s *JSONStore) appendIndex(dir, id, filename string, run domain.RunArtifact) error {
	passed, failed, skipped := run.CountByStatus()
	type idx struct {
		ID        string    `json:"id"`
		File      string    `json:"file"`
		Pipeline  string    `json:"pipeline"`
		Env       string    `json:"env"`
		StartedAt time.Time `json:"started_at"`
		Passed    int       `json:"passed"`
		Failed    int       `json:"failed"`
		Skipped   int       `json:"skipped"`
	}
	line, err := json.Marshal(idx{
		ID:        id,
		File:      filename,
		Pipeline:  run.PipelineName,
		Env:       run.EnvironmentName,
		StartedAt: run.StartedAt,
		Passed:    passed,
		Failed:    failed,
		Skipped:   skipped,
	})
	if err != nil {
		return err
	}

	indexPath := filepath.Join(dir, "index.jsonl")
	f, err := os.OpenFile(indexPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, _ = f.Write(append(line, '\n'))
	return nil
}

// maskArtifact returns a masked copy (does NOT mutate the input). Job env
// maps carry resolved secrets from the environment overlay, so values under
// sensitive-looking keys are replaced before anything touches disk.
func maskArtifact(run domain.RunArtifact) domain.RunArtifact {
	out := run
	out.Jobs = make([]domain.JobResult, 0, len(run.Jobs))

	for _, jr := range run.Jobs {
		c := jr

		// Deep copy maps we will touch.
		c.Env = cloneVars(jr.Env)

		for k := range c.Env {
			if isSensitiveKey(k) {
				c.Env[k] = maskValue
			}
		}

		out.Jobs = append(out.Jobs, c)
	}

	return out
}

func isSensitiveKey(k string) bool {
	kk := strings.ToLower(k)
	return strings.Contains(kk, "token") ||
		strings.Contains(kk, "secret") ||
		strings.Contains(kk, "password") ||
		strings.Contains(kk, "passwd") ||
		strings.Contains(kk, "api_key") ||
		strings.Contains(kk, "apikey")
}

func cloneVars(in domain.Vars) domain.Vars {
	if in == nil {
		return domain.Vars{}
	}
	out := domain.Vars{}
	for k, v := range in {
		out[k] = v
	}
	return out
}

// slugify produces a safe filename component.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))

	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
			lastDash = false
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case r == ' ' || r == '_' || r == '-' || r == '.':
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		default:
			// any other char -> dash
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	out := strings.Trim(b.String(), "-")
	out = strings.ReplaceAll(out, "--", "-")
	return out
}
