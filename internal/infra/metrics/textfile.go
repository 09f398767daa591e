// Package metrics publishes per-run aggregates as a node-exporter textfile,
// so scheduled bindkit runs show up on existing Prometheus dashboards without
// keeping a server alive.
package metrics

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"bindkit/internal/domain"
	"bindkit/internal/ports"
)

type TextfilePublisher struct {
	dir string
}

// NewTextfilePublisher resolves the metrics directory from the workspace
// config; a relative dir is anchored at the workspace root.
func NewTextfilePublisher(root string, cfg domain.Config) *TextfilePublisher {
	dir := cfg.Metrics.Dir
	if strings.TrimSpace(dir) == "" {
		dir = ".bindkit/metrics"
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return &TextfilePublisher{dir: dir}
}

var _ ports.RunMetrics = (*TextfilePublisher)(nil)

// Publish writes one <pipeline>.prom file describing the run. Gauges carry
// last-run semantics; the completion timestamp lets alerts catch stale runs.
func (p *TextfilePublisher) Publish(run domain.RunArtifact) error {
	reg := prometheus.NewRegistry()

	jobs := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bindkit_run_jobs",
		Help: "Jobs of the last run by status.",
	}, []string{"pipeline", "environment", "status"})

	runDuration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bindkit_run_duration_seconds",
		Help: "Wall-clock duration of the last run.",
	}, []string{"pipeline", "environment"})

	completedAt := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bindkit_run_completed_timestamp_seconds",
		Help: "Unix time the last run finished.",
	}, []string{"pipeline", "environment"})

	jobDuration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bindkit_job_duration_seconds",
		Help: "Wall-clock duration of each job of the last run.",
	}, []string{"pipeline", "environment", "job", "point"})

	steps := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bindkit_job_steps",
		Help: "Steps executed per job of the last run.",
	}, []string{"pipeline", "environment", "job", "point"})

	checksFailed := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bindkit_job_checks_failed",
		Help: "Failed post-step checks per job of the last run.",
	}, []string{"pipeline", "environment", "job", "point"})

	reg.MustRegister(jobs, runDuration, completedAt, jobDuration, steps, checksFailed)

	pl := run.PipelineName
	env := run.EnvironmentName

	passed, failed, skipped := run.CountByStatus()
	jobs.WithLabelValues(pl, env, string(domain.StatusPassed)).Set(float64(passed))
	jobs.WithLabelValues(pl, env, string(domain.StatusFailed)).Set(float64(failed))
	jobs.WithLabelValues(pl, env, string(domain.StatusSkipped)).Set(float64(skipped))

	if !run.EndedAt.IsZero() && !run.StartedAt.IsZero() {
		runDuration.WithLabelValues(pl, env).Set(run.EndedAt.Sub(run.StartedAt).Seconds())
		completedAt.WithLabelValues(pl, env).Set(float64(run.EndedAt.Unix()))
	}

	for _, job := range run.Jobs {
		if !job.EndedAt.IsZero() && !job.StartedAt.IsZero() {
			jobDuration.WithLabelValues(pl, env, job.JobName, job.PointKey).
				Set(job.EndedAt.Sub(job.StartedAt).Seconds())
		}
		steps.WithLabelValues(pl, env, job.JobName, job.PointKey).Set(float64(len(job.Steps)))
		n := 0
		for _, c := range job.Checks {
			if !c.Passed {
				n++
			}
		}
		checksFailed.WithLabelValues(pl, env, job.JobName, job.PointKey).Set(float64(n))
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return &domain.OpError{
			Op:   "metrics.mkdir",
			Kind: domain.KindExecution,
			Path: p.dir,
			Err:  err,
		}
	}

	path := filepath.Join(p.dir, fileSlug(pl)+".prom")
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return &domain.OpError{
			Op:   "metrics.write",
			Kind: domain.KindExecution,
			Path: path,
			Err:  err,
		}
	}
	return nil
}

// Dir returns the resolved metrics directory.
func (p *TextfilePublisher) Dir() string {
	return p.dir
}

func fileSlug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "run"
	}
	var b strings.Builder
	b.Grow(len(name))
	lastDash := false
	for _, r := range name {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if isAlnum {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "run"
	}
	return out
}
