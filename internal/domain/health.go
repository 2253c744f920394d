package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// PolicyMetrics is returned by GET /v1/metrics/policy.
type PolicyMetrics struct {
	CancelChecks      int64   `json:"cancelChecks"`
	CancelDenied      int64   `json:"cancelDenied"`
	ReserveChecks     int64   `json:"reserveChecks"`
	ReserveDenied     int64   `json:"reserveDenied"`
	ConfigFallbacks   int64   `json:"configFallbacks"`
	DeniedRate        float64 `json:"deniedRate"`
	PermissionHitRate float64 `json:"permissionCacheHitRate"`
	Period            string  `json:"period"`
}

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}
