package common

import (
	"errors"
	"sync"
)

// ErrModulePaused is returned when a guarded entry point is invoked while its
// module switch is paused.
var ErrModulePaused = errors.New("module paused")

// Module identifiers recognised by the pause switchboard.
const (
	ModulePrefs  = "prefs"
	ModuleFees   = "fees"
	ModuleSettle = "settle"
)

// PauseView exposes the read side of the pause switchboard.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the named module is paused. A nil view or empty
// module name disables the check.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// Pauses is a concrete in-process switchboard, safe for concurrent use. The
// zero value is usable and reports every module as running.
type Pauses struct {
	mu     sync.RWMutex
	paused map[string]bool
}

// NewPauses constructs an empty switchboard.
func NewPauses() *Pauses {
	return &Pauses{paused: make(map[string]bool)}
}

// SetPaused toggles the named module.
func (p *Pauses) SetPaused(module string, paused bool) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused == nil {
		p.paused = make(map[string]bool)
	}
	p.paused[module] = paused
}

// IsPaused implements PauseView.
func (p *Pauses) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused[module]
}
