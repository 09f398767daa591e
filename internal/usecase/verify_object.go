package usecase

import (
	"fmt"
	"strings"

	"bindkit/internal/domain"
	"bindkit/internal/ports"
)

// VerifyObject inspects a built shared object outside any pipeline run: which
// required symbols it exports and whether its SONAME matches expectations.
type VerifyObject struct {
	inspector ports.ObjectInspector
	pipelines ports.PipelineLoader
}

func NewVerifyObject(inspector ports.ObjectInspector, pl ports.PipelineLoader) *VerifyObject {
	return &VerifyObject{inspector: inspector, pipelines: pl}
}

type VerifyObjectInput struct {
	ObjectPath   string
	Symbols      []string
	SonamePrefix string
	MinVersion   string
	PipelinePath string
}

// Execute resolves the symbol list (explicit symbols win over the pipeline's
// library contract), inspects the object, and reports. The report is returned
// even when verification fails so callers can display it.
func (uc *VerifyObject) Execute(in VerifyObjectInput) (domain.ObjectReport, error) {
	symbols := in.Symbols
	prefix := in.SonamePrefix
	minVersion := in.MinVersion

	if len(symbols) == 0 && in.PipelinePath != "" {
		pipeline, err := uc.pipelines.LoadPipeline(in.PipelinePath)
		if err != nil {
			return domain.ObjectReport{}, err
		}
		symbols = pipeline.Library.Symbols
		if prefix == "" {
			prefix = pipeline.Library.SonamePrefix
		}
		if minVersion == "" {
			minVersion = pipeline.Library.MinVersion
		}
	}
	if len(symbols) == 0 {
		return domain.ObjectReport{}, &domain.OpError{
			Op:   "verify",
			Kind: domain.KindInvalidConfig,
			Path: in.ObjectPath,
			Err:  fmt.Errorf("no symbols to verify; pass symbols or a pipeline"),
		}
	}

	report, err := uc.inspector.Inspect(in.ObjectPath, symbols)
	if err != nil {
		return domain.ObjectReport{}, err
	}

	if !report.Complete() {
		return report, fmt.Errorf("%d of %d required symbols missing: %s",
			len(report.Missing), len(symbols), strings.Join(report.Missing, ", "))
	}
	if prefix != "" && !strings.HasPrefix(report.SONAME, prefix) {
		return report, fmt.Errorf("soname %q does not match prefix %q", report.SONAME, prefix)
	}
	if minVersion != "" {
		if err := checkMinVersion(report, minVersion); err != nil {
			return report, err
		}
	}
	return report, nil
}

func checkMinVersion(report domain.ObjectReport, minVersion string) error {
	min, err := domain.ParseVersion(minVersion)
	if err != nil {
		return &domain.OpError{
			Op:   "verify",
			Kind: domain.KindInvalidConfig,
			Path: report.Path,
			Err:  fmt.Errorf("min version: %w", err),
		}
	}
	if report.SonameVersion == "" {
		return fmt.Errorf("soname %q carries no version to compare against %s", report.SONAME, min)
	}
	installed, err := domain.ParseVersion(report.SonameVersion)
	if err != nil {
		return fmt.Errorf("soname version %q: %w", report.SonameVersion, err)
	}
	if installed.Older(min) {
		return fmt.Errorf("library version %s is older than required %s", installed, min)
	}
	return nil
}
