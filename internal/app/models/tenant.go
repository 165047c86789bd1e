package models

import (
	"strings"
	"time"
)

// Tenant is one isolated site of a multi-site deployment.
type Tenant struct {
	ID        int64     `json:"id"`
	Domain    string    `json:"domain"`
	Archived  bool      `json:"archived"`
	Spam      bool      `json:"spam"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
}

// Active reports whether the tenant takes part in network-wide provisioning.
func (t Tenant) Active() bool {
	return !t.Archived && !t.Spam && !t.Deleted
}

type TenantFlags struct {
	Archived *bool `json:"archived,omitempty"`
	Spam     *bool `json:"spam,omitempty"`
	Deleted  *bool `json:"deleted,omitempty"`
}

func (f TenantFlags) Apply(t *Tenant) {
	if f.Archived != nil {
		t.Archived = *f.Archived
	}
	if f.Spam != nil {
		t.Spam = *f.Spam
	}
	if f.Deleted != nil {
		t.Deleted = *f.Deleted
	}
}

// OptionEnabled interprets a stored option value as a boolean.
func OptionEnabled(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
