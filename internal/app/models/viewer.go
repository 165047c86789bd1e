package models

const (
	RoleSubscriber    = "subscriber"
	RoleContributor   = "contributor"
	RoleAuthor        = "author"
	RoleEditor        = "editor"
	RoleAdministrator = "administrator"
)

// Viewer is the identity behind a request. A nil Viewer or one with a zero
// UserID is anonymous.
type Viewer struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func (v *Viewer) Authenticated() bool {
	return v != nil && v.UserID != 0
}

func (v *Viewer) ID() int64 {
	if v == nil {
		return 0
	}
	return v.UserID
}

// CanEditTasks mirrors the edit_posts capability.
func (v *Viewer) CanEditTasks() bool {
	if !v.Authenticated() {
		return false
	}
	switch v.Role {
	case RoleContributor, RoleAuthor, RoleEditor, RoleAdministrator:
		return true
	}
	return false
}

func (v *Viewer) IsAdministrator() bool {
	return v.Authenticated() && v.Role == RoleAdministrator
}
