package domain

// Module is a dashboard navigation entry. Modules form a tree through ParentID.
type Module struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Path      string    `json:"path,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	ParentID  *string   `json:"parent_id,omitempty"`
	SortOrder int       `json:"sort_order"`
	Active    bool      `json:"active"`
	Children  []*Module `json:"children,omitempty"`
}

// Profile links an auth user to a role.
type Profile struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name,omitempty"`
	RoleID   string `json:"role_id"`
}

// Permission codes guarding API areas.
const (
	PermAppointments = "citas"
	PermSettings     = "configuracion"
	PermInventory    = "inventario"
)

// ModulesResponse is returned by GET /v1/me/modules.
type ModulesResponse struct {
	UserID      string    `json:"user_id"`
	RoleID      string    `json:"role_id"`
	Permissions []string  `json:"permissions"`
	Modules     []*Module `json:"modules"`
}
