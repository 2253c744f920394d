package supabase

import (
	"context"
	"net/url"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
)

// ============================================================
// Permissions store: profiles, role_permissions, modules
// ============================================================

func (c *Client) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	q := url.Values{
		"select":  {"user_id,full_name,role_id"},
		"user_id": {eq(userID)},
		"limit":   {"1"},
	}

	var rows []domain.Profile
	if err := c.get(ctx, "profiles", q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	return &rows[0], nil
}

type rolePermissionRow struct {
	PermissionCode string `json:"permission_code"`
}

func (c *Client) ListPermissionCodes(ctx context.Context, roleID string) ([]string, error) {
	q := url.Values{
		"select":  {"permission_code"},
		"role_id": {eq(roleID)},
	}

	var rows []rolePermissionRow
	if err := c.get(ctx, "role_permissions", q, &rows); err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(rows))
	for _, r := range rows {
		codes = append(codes, r.PermissionCode)
	}
	return codes, nil
}

func (c *Client) ListModules(ctx context.Context) ([]domain.Module, error) {
	q := url.Values{
		"select": {"id,code,name,path,icon,parent_id,sort_order,active"},
		"order":  {"sort_order.asc"},
	}

	rows := []domain.Module{}
	if err := c.get(ctx, "modules", q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
