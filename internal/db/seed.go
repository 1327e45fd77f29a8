package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	"gopkg.in/yaml.v3"
)

//go:embed referral_types.yaml
var referralTypesYAML []byte

type referralTypeSeed struct {
	Slug  string `yaml:"slug"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Phone string `yaml:"phone"`
}

// SeedReferralTypes upserts the fixed set of referral departments. Keyed by
// slug so repeated runs update contact details in place.
func (c *Client) SeedReferralTypes(ctx context.Context) error {
	var seeds []referralTypeSeed
	if err := yaml.Unmarshal(referralTypesYAML, &seeds); err != nil {
		return fmt.Errorf("parse referral type seed: %w", err)
	}

	for _, s := range seeds {
		_, err := surrealdb.Query[any](ctx, c.db, `
			UPSERT type::record("referral_type", $slug) SET
				name = $name,
				email = $email,
				phone = $phone
		`, map[string]any{
			"slug":  s.Slug,
			"name":  s.Name,
			"email": s.Email,
			"phone": s.Phone,
		})
		if err != nil {
			return fmt.Errorf("seed referral type %q: %w", s.Name, err)
		}
	}

	c.logger.Info("seeded referral types", "count", len(seeds))
	return nil
}
