package auth

import "github.com/dukerupert/familyhub/internal/model"

// Capability is a coarse action gate derived from a role.
type Capability int

const (
	ManageUsers Capability = iota
	ManageTasks
	ViewAllTasks
)

func (c Capability) String() string {
	switch c {
	case ManageUsers:
		return "manage users"
	case ManageTasks:
		return "manage tasks"
	case ViewAllTasks:
		return "view all tasks"
	default:
		return "unknown"
	}
}

// Can reports whether role grants capability. Unknown roles grant nothing.
func Can(role model.Role, c Capability) bool {
	switch role {
	case model.RoleAdmin:
		return true
	case model.RoleParent:
		switch c {
		case ManageTasks, ViewAllTasks:
			return true
		case ManageUsers:
			return false
		}
	case model.RoleChild:
		return false
	}
	return false
}

func CanManageUsers(role model.Role) bool  { return Can(role, ManageUsers) }
func CanManageTasks(role model.Role) bool  { return Can(role, ManageTasks) }
func CanViewAllTasks(role model.Role) bool { return Can(role, ViewAllTasks) }

// VisibleTasks returns the tasks ac may see: everything for admins and
// parents, only tasks assigned to them for children.
func VisibleTasks(ac AuthContext, tasks []model.Task) []model.Task {
	if CanViewAllTasks(ac.Role) {
		return tasks
	}
	return filter(tasks, func(t model.Task) bool {
		return ac.ProfileID != "" && t.AssigneeID == ac.ProfileID
	})
}

// VisibleEvents returns the events ac may see. Children see their own,
// family and unowned events.
func VisibleEvents(ac AuthContext, events []model.Event) []model.Event {
	if CanViewAllTasks(ac.Role) {
		return events
	}
	return filter(events, func(e model.Event) bool {
		switch e.Owner() {
		case model.OwnerFamily, model.OwnerNone:
			return true
		case model.OwnerProfile:
			return e.OwnedBy(ac.ProfileID)
		}
		return false
	})
}

// VisibleLists returns the lists ac may see. Children see shared lists and
// the ones they created.
func VisibleLists(ac AuthContext, lists []model.List) []model.List {
	if CanViewAllTasks(ac.Role) {
		return lists
	}
	return filter(lists, func(l model.List) bool {
		return l.IsShared || (ac.ProfileID != "" && l.CreatedBy == ac.ProfileID)
	})
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
