package service

import (
	"context"
	"sort"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
	"github.com/boddenberg/agenda-bfa-go/internal/infra/observability"
	"github.com/boddenberg/agenda-bfa-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var permTracer = otel.Tracer("service/permissions")

// PermissionService resolves which dashboard modules a user may see.
type PermissionService struct {
	store   port.PermissionStore
	cache   port.Cache[[]string]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewPermissionService creates the service. cache holds permission codes per role.
func NewPermissionService(store port.PermissionStore, cache port.Cache[[]string], metrics *observability.Metrics, logger *zap.Logger) *PermissionService {
	return &PermissionService{
		store:   store,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// BuildModuleTree assembles flat module rows into a forest. Inactive modules
// (and therefore their subtrees) are dropped; rows whose parent is unknown
// become roots. Siblings are ordered by sort_order, then name.
func BuildModuleTree(rows []domain.Module) []*domain.Module {
	nodes := make(map[string]*domain.Module, len(rows))
	for i := range rows {
		if !rows[i].Active {
			continue
		}
		m := rows[i]
		m.Children = nil
		nodes[m.ID] = &m
	}

	inactive := make(map[string]bool)
	for _, r := range rows {
		if !r.Active {
			inactive[r.ID] = true
		}
	}

	var roots []*domain.Module
	for i := range rows {
		n, ok := nodes[rows[i].ID]
		if !ok {
			continue
		}
		if n.ParentID == nil || *n.ParentID == "" {
			roots = append(roots, n)
			continue
		}
		if inactive[*n.ParentID] {
			continue
		}
		parent, ok := nodes[*n.ParentID]
		if !ok {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	sortModules(roots)
	return roots
}

func sortModules(ms []*domain.Module) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].SortOrder != ms[j].SortOrder {
			return ms[i].SortOrder < ms[j].SortOrder
		}
		return ms[i].Name < ms[j].Name
	})
	for _, m := range ms {
		sortModules(m.Children)
	}
}

// FilterModules returns a copy of tree keeping the nodes whose code is granted
// or that have a surviving descendant. A granted parent does not grant its
// children; each child is checked on its own.
func FilterModules(tree []*domain.Module, granted map[string]struct{}) []*domain.Module {
	out := make([]*domain.Module, 0, len(tree))
	for _, m := range tree {
		children := FilterModules(m.Children, granted)
		_, ok := granted[m.Code]
		if !ok && len(children) == 0 {
			continue
		}
		cp := *m
		cp.Children = nil
		if len(children) > 0 {
			cp.Children = children
		}
		out = append(out, &cp)
	}
	return out
}

// codesForRole returns the permission codes of a role, cached per role.
func (s *PermissionService) codesForRole(ctx context.Context, roleID string) ([]string, error) {
	key := "role:" + roleID
	if codes, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit("permissions")
		return codes, nil
	}
	s.metrics.IncrCacheMiss("permissions")

	codes, err := s.store.ListPermissionCodes(ctx, roleID)
	if err != nil {
		s.metrics.IncrExternalError("permissions")
		return nil, err
	}
	s.cache.Set(key, codes)
	return codes, nil
}

// ModulesForUser returns the user's permission codes and filtered module tree.
func (s *PermissionService) ModulesForUser(ctx context.Context, userID string) (*domain.ModulesResponse, error) {
	ctx, span := permTracer.Start(ctx, "PermissionService.ModulesForUser")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		codes []string
		rows  []domain.Module
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.codesForRole(gCtx, profile.RoleID)
		codes = c
		return err
	})
	g.Go(func() error {
		r, err := s.store.ListModules(gCtx)
		rows = r
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("failed to load modules", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	modules := FilterModules(BuildModuleTree(rows), toSet(codes))
	if codes == nil {
		codes = []string{}
	}
	return &domain.ModulesResponse{
		UserID:      userID,
		RoleID:      profile.RoleID,
		Permissions: codes,
		Modules:     modules,
	}, nil
}

// HasPermission reports whether the user's role grants code.
func (s *PermissionService) HasPermission(ctx context.Context, userID, code string) (bool, error) {
	ctx, span := permTracer.Start(ctx, "PermissionService.HasPermission")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("permission.code", code))

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return false, err
	}
	codes, err := s.codesForRole(ctx, profile.RoleID)
	if err != nil {
		return false, err
	}
	_, ok := toSet(codes)[code]
	return ok, nil
}

func toSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}
