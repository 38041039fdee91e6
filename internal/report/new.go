package report

import (
	"log"
	"strings"
)

// Config selects the report backend: PostgresDSN wins, then the S3
// settings, then a plain file store in Dir. The caller (one config
// layer) parses environment and flags; this package never reads env.
type Config struct {
	Dir         string
	PostgresDSN string
	S3          S3Config
}

// New builds the configured store. Backend failures fall back to files
// so a misconfigured store never blocks local use.
func New(cfg Config) (Store, error) {
	if dsn := strings.TrimSpace(cfg.PostgresDSN); dsn != "" {
		pg, err := NewPostgresStore(dsn)
		if err == nil {
			return NewCachedStore(pg)
		}
		log.Printf("report: postgres store unavailable, falling back to files: %v", err)
	}
	if strings.TrimSpace(cfg.S3.Endpoint) != "" {
		s3, err := NewS3Store(cfg.S3)
		if err == nil {
			return NewCachedStore(s3)
		}
		log.Printf("report: s3 store unavailable, falling back to files: %v", err)
	}
	return NewFileStore(cfg.Dir)
}
