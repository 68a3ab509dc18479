package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks tag constraints and the cross-field rules the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.History.Enabled {
		if err := c.History.Database.validateRequired("history.database"); err != nil {
			return err
		}
	}

	if db := c.History.Database; db.MinConns > db.MaxConns {
		return fmt.Errorf("history.database.min_conns (%d) cannot exceed max_conns (%d)", db.MinConns, db.MaxConns)
	}

	if c.Updater.OpenSlack < 0 || c.Updater.ReselectAfter < 0 || c.Updater.EarlyWindow < 0 {
		return fmt.Errorf("updater durations must not be negative")
	}

	return nil
}

func (db *DBConfig) validateRequired(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	return nil
}
