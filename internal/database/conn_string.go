package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/intraday-data/internal/config"
)

// BuildConnString renders cfg as a postgres:// URL for pgx. The password
// is the one field operators put metacharacters in, so it alone is
// escaped. SSLMode is filled in during config loading.
func BuildConnString(cfg config.DBConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.Name,
		cfg.SSLMode,
	)
}
