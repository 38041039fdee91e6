package run

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RodrigoLima82/databricks-assessment-tool/internal/pipeline"
)

var (
	// ErrAlreadyRunning is returned by Start while a session is active.
	ErrAlreadyRunning = errors.New("an assessment is already running")
	// ErrInvalidRequest is returned for malformed requests, before any
	// session is created.
	ErrInvalidRequest = errors.New("invalid run request")
)

// Request is the caller-supplied configuration for one assessment run.
type Request struct {
	// Export enables the external workspace-export stage.
	Export bool `json:"export"`
	// Analysis enables the AI-analysis stages.
	Analysis bool `json:"analysis"`
	// Phases selects analysis phases by name. The consolidating report
	// phase is always appended when Analysis is set, whether or not it
	// is listed here.
	Phases []string `json:"phases,omitempty"`
	// Options are stage-specific settings consumed opaquely by units
	// (exporter flags, endpoint overrides).
	Options map[string]string `json:"options,omitempty"`
	// Language is the BCP-47 output-language tag for generated text.
	Language string `json:"language,omitempty"`
}

// UnitBuilder supplies concrete pipeline units. The orchestrator only
// decides ordering and failure policy.
type UnitBuilder interface {
	// ExportUnit builds the external exporter invocation.
	ExportUnit(opts map[string]string) (pipeline.Unit, error)
	// AgentUnit builds one analysis phase, false if the phase is unknown.
	AgentUnit(phase, language string) (pipeline.Unit, bool)
	// ConsolidatingPhase names the mandatory final analysis phase.
	ConsolidatingPhase() string
	// UnitNames lists every unit name this builder can produce, in
	// pipeline order. Used for storage-backed result listings.
	UnitNames() []string
}

func validateRequest(req Request, b UnitBuilder) error {
	if !req.Export && !req.Analysis {
		return fmt.Errorf("%w: no stage enabled", ErrInvalidRequest)
	}
	if !req.Analysis && len(req.Phases) > 0 {
		return fmt.Errorf("%w: phases given but analysis is disabled", ErrInvalidRequest)
	}
	for _, phase := range req.Phases {
		phase = strings.TrimSpace(phase)
		if phase == "" {
			return fmt.Errorf("%w: empty phase name", ErrInvalidRequest)
		}
		if _, ok := b.AgentUnit(phase, req.Language); !ok {
			return fmt.Errorf("%w: unknown analysis phase %q", ErrInvalidRequest, phase)
		}
	}
	return nil
}

// buildUnits assembles the ordered unit list: export first when enabled,
// then the selected analysis phases in request order, with the
// consolidating phase always last.
func buildUnits(req Request, b UnitBuilder) ([]pipeline.Unit, error) {
	var units []pipeline.Unit
	if req.Export {
		u, err := b.ExportUnit(req.Options)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		units = append(units, u)
	}
	if req.Analysis {
		consolidating := b.ConsolidatingPhase()
		seen := make(map[string]bool)
		for _, phase := range req.Phases {
			phase = strings.TrimSpace(phase)
			if phase == "" || phase == consolidating || seen[phase] {
				continue
			}
			seen[phase] = true
			u, ok := b.AgentUnit(phase, req.Language)
			if !ok {
				return nil, fmt.Errorf("%w: unknown analysis phase %q", ErrInvalidRequest, phase)
			}
			units = append(units, u)
		}
		u, ok := b.AgentUnit(consolidating, req.Language)
		if !ok {
			return nil, fmt.Errorf("%w: builder has no consolidating phase", ErrInvalidRequest)
		}
		units = append(units, u)
	}
	return units, nil
}
