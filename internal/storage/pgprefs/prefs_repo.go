package pgprefs

import (
	"context"
	"strings"

	"github.com/BearBump/OrderSync/internal/models"
	"github.com/pkg/errors"
)

// LoadPreferencesByAgentEmail returns every stored preference keyed by the
// lower-cased agent email.
func (s *Storage) LoadPreferencesByAgentEmail(ctx context.Context) (map[string]models.AgentPreference, error) {
	rows, err := s.db.Query(ctx, `
SELECT agent_email, shoot_pref, editing_pref, delivery_pref
FROM agent_preferences
`)
	if err != nil {
		return nil, errors.Wrap(err, "select agent preferences")
	}
	defer rows.Close()

	out := map[string]models.AgentPreference{}
	for rows.Next() {
		var email string
		var p models.AgentPreference
		if err := rows.Scan(&email, &p.ShootPref, &p.EditingPref, &p.DeliveryPref); err != nil {
			return nil, errors.Wrap(err, "scan agent preference")
		}
		out[strings.ToLower(strings.TrimSpace(email))] = p
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows")
	}
	return out, nil
}

// UpsertPreference stores the preferences of one agent.
func (s *Storage) UpsertPreference(ctx context.Context, email string, p models.AgentPreference) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.Wrap(models.ErrValidation, "agent email is required")
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO agent_preferences (agent_email, shoot_pref, editing_pref, delivery_pref)
VALUES ($1,$2,$3,$4)
ON CONFLICT ((lower(agent_email)))
DO UPDATE SET
  shoot_pref = EXCLUDED.shoot_pref,
  editing_pref = EXCLUDED.editing_pref,
  delivery_pref = EXCLUDED.delivery_pref,
  updated_at = now()
`, email, p.ShootPref, p.EditingPref, p.DeliveryPref)
	if err != nil {
		return errors.Wrap(err, "upsert agent preference")
	}
	return nil
}
