package app

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/RodrigoLima82/databricks-assessment-tool/internal/agent"
	"github.com/RodrigoLima82/databricks-assessment-tool/internal/config"
	"github.com/RodrigoLima82/databricks-assessment-tool/internal/llmclient"
	"github.com/RodrigoLima82/databricks-assessment-tool/internal/report"
	"github.com/RodrigoLima82/databricks-assessment-tool/internal/run"
	"github.com/RodrigoLima82/databricks-assessment-tool/internal/safeio"
	"github.com/RodrigoLima82/databricks-assessment-tool/internal/server"
	"github.com/RodrigoLima82/databricks-assessment-tool/internal/state"
)

type App struct {
	server *server.Server
	client llmclient.Client
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// the exporter writes here; the analysis phases read from here
	for _, dir := range []string{cfg.Export.WorkDir, cfg.Export.TerraformDir, cfg.Export.UCXDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create export dir %s: %w", dir, err)
		}
	}

	store, err := report.New(report.Config{
		Dir:         cfg.Reports.Dir,
		PostgresDSN: cfg.Reports.PostgresDSN,
		S3: report.S3Config{
			Endpoint:  cfg.Reports.S3.Endpoint,
			Region:    cfg.Reports.S3.Region,
			AccessKey: cfg.Reports.S3.AccessKey,
			SecretKey: cfg.Reports.S3.SecretKey,
			Bucket:    cfg.Reports.S3.Bucket,
			UseSSL:    cfg.Reports.S3.UseSSL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize report store: %w", err)
	}

	client, err := newLLMClient(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	tfFS, err := safeio.NewSafeFS(cfg.Export.TerraformDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open terraform export dir: %w", err)
	}
	ucxFS, err := safeio.NewSafeFS(cfg.Export.UCXDir)
	if err != nil {
		log.Printf("ucx export dir unavailable, ucx phase disabled: %v", err)
		ucxFS = nil
	}

	runner, err := agent.NewRunner(client, store, tfFS, ucxFS)
	if err != nil {
		return nil, err
	}

	lastStore, err := state.NewStore(cfg.LastRequestPath)
	if err != nil {
		return nil, err
	}

	builder := newAssessmentBuilder(cfg.Export, runner, cfg.Language)
	svc := run.New(builder, lastStore)

	api := server.NewHandler(svc, store, lastStore, runner.Phases())
	mux := server.NewMux(api, server.NewWSHandler(svc))
	srv := server.New(cfg.Port, mux)

	return &App{
		server: srv,
		client: client,
	}, nil
}

func newLLMClient(ctx context.Context, cfg config.LLMConfig) (llmclient.Client, error) {
	switch cfg.Provider {
	case "gemini":
		cli, err := llmclient.NewGeminiClient(ctx, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
		}
		return llmclient.WithRetry(cli, cfg.RetryAttempts, 0), nil
	case "databricks":
		cli, err := llmclient.NewDatabricksClient(cfg.DatabricksHost, cfg.DatabricksEndpoint, cfg.DatabricksToken)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize databricks client: %w", err)
		}
		return llmclient.WithRetry(cli, cfg.RetryAttempts, 0), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	if a.client != nil {
		_ = a.client.Close()
	}
	return a.server.Shutdown(ctx)
}
