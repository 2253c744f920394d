package supabase

import (
	"context"
	"net/url"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
)

// ============================================================
// Configurations store (implements port.ConfigStore)
// ============================================================

// GetConfig reads one row of the key/value configurations table.
// A missing key returns (nil, nil) so the policy can apply its default.
func (c *Client) GetConfig(ctx context.Context, key string) (*domain.ConfigEntry, error) {
	q := url.Values{
		"select": {"key,value,active,description,updated_at"},
		"key":    {eq(key)},
		"limit":  {"1"},
	}

	var rows []domain.ConfigEntry
	if err := c.get(ctx, "configurations", q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
