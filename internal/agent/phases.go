// Package agent implements the analysis phases of an assessment run.
// Each phase reads the export working area, optionally consults an LLM,
// and persists one markdown report artifact.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RodrigoLima82/databricks-assessment-tool/internal/llmclient"
	"github.com/RodrigoLima82/databricks-assessment-tool/internal/pipeline"
	"github.com/RodrigoLima82/databricks-assessment-tool/internal/report"
	"github.com/RodrigoLima82/databricks-assessment-tool/internal/safeio"
)

// Phase names double as report artifact keys.
const (
	PhaseInventory = "inventory"
	PhaseUCX       = "ucx"
	PhaseDetailed  = "detailed"
	PhaseReport    = "report"
)

// Token ceilings per phase, matching what each answer realistically
// needs.
const (
	summaryMaxTokens  = 10000
	ucxMaxTokens      = 15000
	detailedMaxTokens = 30000
)

// Runner builds phase units over a fixed export working area. The ucx
// filesystem may be nil when no UCX export directory exists.
type Runner struct {
	client llmclient.Client
	store  report.Store
	tfFS   *safeio.SafeFS
	ucxFS  *safeio.SafeFS
}

func NewRunner(client llmclient.Client, store report.Store, tfFS, ucxFS *safeio.SafeFS) (*Runner, error) {
	if client == nil {
		return nil, errors.New("agent: nil llm client")
	}
	if store == nil {
		return nil, errors.New("agent: nil report store")
	}
	if tfFS == nil {
		return nil, errors.New("agent: nil terraform filesystem")
	}
	return &Runner{client: client, store: store, tfFS: tfFS, ucxFS: ucxFS}, nil
}

// Phases lists the supported phase names in their canonical order.
func (r *Runner) Phases() []string {
	return []string{PhaseInventory, PhaseUCX, PhaseDetailed, PhaseReport}
}

// ConsolidatingPhase names the phase that assembles the final report.
func (r *Runner) ConsolidatingPhase() string { return PhaseReport }

// Unit returns the execution unit for a phase, bound to the requested
// report language.
func (r *Runner) Unit(phase, language string) (pipeline.Unit, bool) {
	var run func(ctx context.Context, p Prompts, onLog pipeline.LogFunc) (string, error)
	switch phase {
	case PhaseInventory:
		run = r.runInventory
	case PhaseUCX:
		run = r.runUCX
	case PhaseDetailed:
		run = r.runDetailed
	case PhaseReport:
		run = r.runReport
	default:
		return nil, false
	}
	return &phaseUnit{name: phase, prompts: PromptsFor(language), run: run}, true
}

type phaseUnit struct {
	name    string
	prompts Prompts
	run     func(ctx context.Context, p Prompts, onLog pipeline.LogFunc) (string, error)
}

func (u *phaseUnit) Name() string { return u.name }

func (u *phaseUnit) Run(ctx context.Context, onLog pipeline.LogFunc) (string, error) {
	return u.run(ctx, u.prompts, onLog)
}

// runInventory is fully local: it scans the Terraform export and writes
// the inventory section without touching the LLM.
func (r *Runner) runInventory(ctx context.Context, p Prompts, onLog pipeline.LogFunc) (string, error) {
	onLog("scanning terraform export")
	stats, inv, err := scanTerraform(r.tfFS, onLog)
	if err != nil {
		return "", err
	}
	md := renderInventory(stats, inv, p)
	if err := r.store.Put(ctx, PhaseInventory, []byte(md)); err != nil {
		return "", fmt.Errorf("storing inventory report: %w", err)
	}
	return fmt.Sprintf("%d resources across %d files", stats.total(), stats.files), nil
}

func (r *Runner) runUCX(ctx context.Context, p Prompts, onLog pipeline.LogFunc) (string, error) {
	if r.ucxFS == nil {
		return "", errors.New("no ucx export directory configured")
	}
	onLog("summarizing ucx export tables")
	summary, err := summarizeUCX(r.ucxFS, onLog)
	if err != nil {
		return "", err
	}
	if summary == "" {
		return "", errors.New("ucx export directory holds no csv tables")
	}

	onLog(fmt.Sprintf("asking %s for migration-readiness analysis", r.client.Name()))
	answer, err := r.client.Chat(ctx, ucxSystemPrompt,
		strings.ReplaceAll(p.UCXPrompt, "{ucx}", summary), ucxMaxTokens)
	if err != nil {
		return "", fmt.Errorf("ucx analysis: %w", err)
	}

	md := fmt.Sprintf("# %s\n\n%s\n", p.UCXSection, CleanResponse(answer))
	if err := r.store.Put(ctx, PhaseUCX, []byte(md)); err != nil {
		return "", fmt.Errorf("storing ucx report: %w", err)
	}
	return "ucx migration analysis written", nil
}

func (r *Runner) runDetailed(ctx context.Context, p Prompts, onLog pipeline.LogFunc) (string, error) {
	inventory, err := r.inventoryText(ctx, p, onLog)
	if err != nil {
		return "", err
	}

	onLog(fmt.Sprintf("asking %s for detailed analysis", r.client.Name()))
	answer, err := r.client.Chat(ctx, markdownSystemPrompt,
		strings.ReplaceAll(p.DetailedPrompt, "{inventory}", inventory), detailedMaxTokens)
	if err != nil {
		return "", fmt.Errorf("detailed analysis: %w", err)
	}

	md := fmt.Sprintf("# %s\n\n%s\n", p.DetailedSection, CleanResponse(answer))
	if err := r.store.Put(ctx, PhaseDetailed, []byte(md)); err != nil {
		return "", fmt.Errorf("storing detailed report: %w", err)
	}
	return "detailed technical analysis written", nil
}

// runReport consolidates whatever earlier phases produced, adds an
// LLM-written executive summary, and writes the final report.
func (r *Runner) runReport(ctx context.Context, p Prompts, onLog pipeline.LogFunc) (string, error) {
	inventory, err := r.inventoryText(ctx, p, onLog)
	if err != nil {
		return "", err
	}

	sections := []string{inventory}
	for _, name := range []string{PhaseUCX, PhaseDetailed} {
		data, err := r.store.Get(ctx, name)
		if errors.Is(err, report.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("loading %s report: %w", name, err)
		}
		sections = append(sections, string(data))
	}

	onLog(fmt.Sprintf("asking %s for executive summary", r.client.Name()))
	answer, err := r.client.Chat(ctx, markdownSystemPrompt,
		strings.ReplaceAll(p.SummaryPrompt, "{inventory}", strings.Join(sections, "\n\n")),
		summaryMaxTokens)
	if err != nil {
		return "", fmt.Errorf("executive summary: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.ReportTitle)
	fmt.Fprintf(&b, "## %s\n\n%s\n\n", p.SummarySection, CleanResponse(answer))
	for _, section := range sections {
		b.WriteString("---\n\n")
		b.WriteString(strings.TrimSpace(section))
		b.WriteString("\n\n")
	}
	if err := r.store.Put(ctx, PhaseReport, []byte(b.String())); err != nil {
		return "", fmt.Errorf("storing final report: %w", err)
	}
	return "final report assembled", nil
}

// inventoryText reuses a stored inventory artifact when the inventory
// phase already ran this session, falling back to a fresh scan.
func (r *Runner) inventoryText(ctx context.Context, p Prompts, onLog pipeline.LogFunc) (string, error) {
	data, err := r.store.Get(ctx, PhaseInventory)
	if err == nil {
		return string(data), nil
	}
	if !errors.Is(err, report.ErrNotFound) {
		return "", fmt.Errorf("loading inventory report: %w", err)
	}
	onLog("no stored inventory, scanning terraform export")
	stats, inv, err := scanTerraform(r.tfFS, onLog)
	if err != nil {
		return "", err
	}
	return renderInventory(stats, inv, p), nil
}
