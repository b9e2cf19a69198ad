// Package prefs stores UI preferences next to the session token.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/and161185/nimbly/internal/storage"
)

// Storage keys.
const (
	ThemeKey   = "theme"
	SidebarKey = "sidebar-collapsed"
)

// Theme is the color scheme.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// ParseTheme accepts "light" and "dark".
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case Light, Dark:
		return Theme(s), nil
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

// Prefs reads and writes preferences; unreadable values fall back to defaults.
type Prefs struct {
	store storage.Store
}

// New returns Prefs over store.
func New(store storage.Store) *Prefs {
	return &Prefs{store: store}
}

// Theme returns the stored theme, Light by default.
func (p *Prefs) Theme(ctx context.Context) (Theme, error) {
	v, err := p.store.Get(ctx, ThemeKey)
	if errors.Is(err, storage.ErrNotFound) {
		return Light, nil
	}
	if err != nil {
		return Light, err
	}
	t, perr := ParseTheme(v)
	if perr != nil {
		return Light, nil
	}
	return t, nil
}

// SetTheme stores t.
func (p *Prefs) SetTheme(ctx context.Context, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	return p.store.Set(ctx, ThemeKey, string(t))
}

// ToggleTheme flips between light and dark and returns the new theme.
func (p *Prefs) ToggleTheme(ctx context.Context) (Theme, error) {
	cur, err := p.Theme(ctx)
	if err != nil {
		return cur, err
	}
	next := Dark
	if cur == Dark {
		next = Light
	}
	return next, p.SetTheme(ctx, next)
}

// SidebarCollapsed reports the stored sidebar state, expanded by default.
func (p *Prefs) SidebarCollapsed(ctx context.Context) (bool, error) {
	v, err := p.store.Get(ctx, SidebarKey)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	b, _ := strconv.ParseBool(v)
	return b, nil
}

// ToggleSidebar flips the sidebar state and returns the new value.
func (p *Prefs) ToggleSidebar(ctx context.Context) (bool, error) {
	cur, err := p.SidebarCollapsed(ctx)
	if err != nil {
		return cur, err
	}
	return !cur, p.store.Set(ctx, SidebarKey, strconv.FormatBool(!cur))
}
