package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a module's state-changing operations are halted.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the module is paused. An overriding caller (the
// contract owner) passes the guard regardless of the pause flag.
func Guard(p PauseView, module string, override bool) error {
	if p == nil || module == "" || override {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
