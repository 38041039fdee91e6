package app

import (
	"sort"

	"github.com/RodrigoLima82/databricks-assessment-tool/internal/agent"
	"github.com/RodrigoLima82/databricks-assessment-tool/internal/config"
	"github.com/RodrigoLima82/databricks-assessment-tool/internal/pipeline"
)

// assessmentBuilder produces the concrete pipeline units: the exporter
// subprocess plus the analysis phases.
type assessmentBuilder struct {
	export          config.ExportConfig
	runner          *agent.Runner
	defaultLanguage string
}

func newAssessmentBuilder(export config.ExportConfig, runner *agent.Runner, defaultLanguage string) *assessmentBuilder {
	return &assessmentBuilder{export: export, runner: runner, defaultLanguage: defaultLanguage}
}

// ExportUnit builds the exporter invocation. Request options become
// --key=value flags, appended in sorted order after the configured args.
func (b *assessmentBuilder) ExportUnit(opts map[string]string) (pipeline.Unit, error) {
	args := append([]string(nil), b.export.Args...)
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--"+k+"="+opts[k])
	}
	return pipeline.NewProcessUnit("export", b.export.Bin, args, b.export.WorkDir, nil)
}

func (b *assessmentBuilder) AgentUnit(phase, language string) (pipeline.Unit, bool) {
	if language == "" {
		language = b.defaultLanguage
	}
	return b.runner.Unit(phase, language)
}

func (b *assessmentBuilder) ConsolidatingPhase() string {
	return b.runner.ConsolidatingPhase()
}

func (b *assessmentBuilder) UnitNames() []string {
	return append([]string{"export"}, b.runner.Phases()...)
}
