package navigation

import "github.com/MrEthical07/goEMS/session"

// Role is a user role as issued by the backend. Each known role selects one
// fixed navigation menu; any other value gets none.
type Role string

const (
	// Admin manages employees, teams, projects, tickets, attendance and leaves.
	Admin Role = "admin"
	// Manager runs teams and projects.
	Manager Role = "manager"
	// HR manages employees, attendance and leaves.
	HR Role = "hr"
	// Employee sees their team, projects, tickets, attendance and leaves.
	Employee Role = "employee"
)

// Roles lists the closed role set.
var Roles = []Role{Admin, Manager, HR, Employee}

// ParseRole maps a raw role string onto the closed set.
func ParseRole(raw string) (Role, bool) {
	r := Role(raw)
	return r, r.Valid()
}

// Valid reports whether r is one of [Roles].
func (r Role) Valid() bool {
	_, ok := roleItems[r]
	return ok
}

// MenuItem is one navigation entry.
type MenuItem struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

var (
	dashboard  = MenuItem{Label: "Dashboard", Path: "/dashboard"}
	profile    = MenuItem{Label: "Profile", Path: "/profile"}
	employees  = MenuItem{Label: "Employees", Path: "/employees"}
	team       = MenuItem{Label: "Team", Path: "/team"}
	projects   = MenuItem{Label: "Projects", Path: "/projects"}
	tickets    = MenuItem{Label: "Tickets", Path: "/tasks"}
	attendance = MenuItem{Label: "Attendance", Path: "/attendance"}
	leaves     = MenuItem{Label: "Leaves", Path: "/leave"}
)

var roleItems = map[Role][]MenuItem{
	Admin:    {employees, team, projects, tickets, attendance, leaves},
	Manager:  {team, projects, tickets, attendance, leaves},
	HR:       {employees, team, attendance, leaves},
	Employee: {team, projects, tickets, attendance, leaves},
}

// RoleItems returns the role-specific entries in display order. Unknown roles
// return nil. The returned slice is a copy.
func RoleItems(role Role) []MenuItem {
	items, ok := roleItems[role]
	if !ok {
		return nil
	}
	out := make([]MenuItem, len(items))
	copy(out, items)
	return out
}

// Menu returns the navigation bar for user: Dashboard followed by the role's
// entries. A nil user or an unknown role yields nil.
func Menu(user *session.User) []MenuItem {
	if user == nil {
		return nil
	}
	role, ok := ParseRole(user.Role)
	if !ok {
		return nil
	}
	items := roleItems[role]
	out := make([]MenuItem, 0, len(items)+1)
	out = append(out, dashboard)
	return append(out, items...)
}

// Allowed reports whether role may open path. Dashboard and Profile are open to
// every known role; everything else follows the role's menu. Sub-paths of a
// menu entry (for example "/projects/new") are allowed with their parent.
func Allowed(role Role, path string) bool {
	items, ok := roleItems[role]
	if !ok {
		return false
	}
	if matches(dashboard.Path, path) || matches(profile.Path, path) {
		return true
	}
	for _, item := range items {
		if matches(item.Path, path) {
			return true
		}
	}
	return false
}

func matches(base, path string) bool {
	if path == base {
		return true
	}
	return len(path) > len(base) && path[:len(base)] == base && path[len(base)] == '/'
}
