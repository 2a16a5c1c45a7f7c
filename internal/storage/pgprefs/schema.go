package pgprefs

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS agent_preferences (
  id BIGSERIAL PRIMARY KEY,
  agent_email TEXT NOT NULL,
  shoot_pref TEXT NOT NULL DEFAULT '',
  editing_pref TEXT NOT NULL DEFAULT '',
  delivery_pref TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		// Emails are matched case-insensitively.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_agent_preferences_email ON agent_preferences(lower(agent_email))`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
