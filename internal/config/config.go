package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	Language string

	Export  ExportConfig
	Reports ReportsConfig
	LLM     LLMConfig

	// LastRequestPath is where the most recent execution request is
	// persisted between restarts.
	LastRequestPath string
}

// ExportConfig describes the external exporter subprocess and the
// working area it writes to.
type ExportConfig struct {
	Bin          string
	Args         []string
	WorkDir      string
	TerraformDir string
	UCXDir       string
}

// ReportsConfig selects the report artifact backend. Dir always applies
// as the filesystem fallback; Postgres or S3 take over when configured.
type ReportsConfig struct {
	Dir         string
	PostgresDSN string
	S3          S3Config
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// LLMConfig selects the analysis backend. Provider is "databricks" or
// "gemini".
type LLMConfig struct {
	Provider string

	DatabricksHost     string
	DatabricksEndpoint string
	DatabricksToken    string

	GeminiModel string

	RetryAttempts int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8080", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	exportDir := firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORT_WORK_DIR")), "./exports")

	return &Config{
		Port:     *port,
		Env:      env,
		Language: firstNonEmpty(strings.TrimSpace(os.Getenv("REPORT_LANGUAGE")), "pt-BR"),
		Export: ExportConfig{
			Bin:          firstNonEmpty(strings.TrimSpace(os.Getenv("EXPORTER_BIN")), "databricks-exporter"),
			Args:         splitArgs(os.Getenv("EXPORTER_ARGS")),
			WorkDir:      exportDir,
			TerraformDir: firstNonEmpty(strings.TrimSpace(os.Getenv("TERRAFORM_EXPORT_DIR")), exportDir+"/terraform"),
			UCXDir:       firstNonEmpty(strings.TrimSpace(os.Getenv("UCX_EXPORT_DIR")), exportDir+"/ucx"),
		},
		Reports:         loadReportsConfig(env),
		LLM:             loadLLMConfig(),
		LastRequestPath: firstNonEmpty(strings.TrimSpace(os.Getenv("LAST_REQUEST_PATH")), "./state/last_request.json"),
	}, nil
}

func loadReportsConfig(env string) ReportsConfig {
	return ReportsConfig{
		Dir:         firstNonEmpty(strings.TrimSpace(os.Getenv("REPORTS_DIR")), "./reports"),
		PostgresDSN: strings.TrimSpace(os.Getenv("REPORT_PG_DSN")),
		S3: S3Config{
			Endpoint:  strings.TrimSpace(os.Getenv("REPORT_S3_ENDPOINT")),
			Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("REPORT_S3_REGION")), "us-east-1"),
			AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("REPORT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
			SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("REPORT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
			Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("REPORT_S3_BUCKET")), "assessment-reports"),
			UseSSL:    resolveUseSSL(env),
		},
	}
}

func loadLLMConfig() LLMConfig {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER")))
	if provider == "" {
		provider = "databricks"
	}
	return LLMConfig{
		Provider:           provider,
		DatabricksHost:     strings.TrimSpace(os.Getenv("DATABRICKS_HOST")),
		DatabricksEndpoint: resolveServingEndpoint(),
		DatabricksToken:    strings.TrimSpace(os.Getenv("DATABRICKS_TOKEN")),
		GeminiModel:        strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
		RetryAttempts:      resolveRetryAttempts(),
	}
}

// resolveServingEndpoint accepts either a full invocation path or just a
// serving endpoint name.
func resolveServingEndpoint() string {
	raw := strings.TrimSpace(os.Getenv("DATABRICKS_SERVING_ENDPOINT"))
	if raw == "" {
		return "/serving-endpoints/databricks-gpt-oss-120b/invocations"
	}
	if strings.HasPrefix(raw, "/serving-endpoints/") {
		return raw
	}
	return "/serving-endpoints/" + strings.Trim(raw, "/") + "/invocations"
}

func resolveRetryAttempts() int {
	raw := strings.TrimSpace(os.Getenv("LLM_RETRY_ATTEMPTS"))
	if raw == "" {
		return 3
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 3
	}
	return n
}

func resolveUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("REPORT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func splitArgs(raw string) []string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
