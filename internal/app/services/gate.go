package services

import (
	"context"
	"net/url"

	"github.com/kalpovskii/nervetask/internal/app/models"
)

type OptionReader interface {
	GetOption(ctx context.Context, name string) (string, bool, error)
}

type Decision struct {
	Redirect bool
	Location string
}

// AccessGate sends anonymous viewers to the login page when the tenant is a
// walled garden.
type AccessGate struct {
	loginURL string
}

func NewAccessGate(loginURL string) *AccessGate {
	return &AccessGate{loginURL: loginURL}
}

func (g *AccessGate) Enforce(ctx context.Context, store OptionReader, viewer *models.Viewer, requested string) (Decision, error) {
	value, ok, err := store.GetOption(ctx, models.OptionWalledGarden)
	if err != nil {
		return Decision{}, err
	}
	if !ok || !models.OptionEnabled(value) || viewer.Authenticated() {
		return Decision{}, nil
	}
	return Decision{Redirect: true, Location: g.LoginURL(requested)}, nil
}

// LoginURL appends redirect_to so the login flow can come back.
func (g *AccessGate) LoginURL(requested string) string {
	u, err := url.Parse(g.loginURL)
	if err != nil {
		return g.loginURL
	}
	if requested != "" {
		q := u.Query()
		q.Set("redirect_to", requested)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

type OptionWriter interface {
	SetOption(ctx context.Context, name, value string) error
}

// SetWalledGarden toggles the gate for the tenant behind store.
func (g *AccessGate) SetWalledGarden(ctx context.Context, store OptionWriter, viewer *models.Viewer, enabled bool) error {
	if !viewer.IsAdministrator() {
		return ErrForbidden
	}
	value := "0"
	if enabled {
		value = "1"
	}
	return store.SetOption(ctx, models.OptionWalledGarden, value)
}
