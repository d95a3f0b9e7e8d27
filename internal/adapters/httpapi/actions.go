package httpapi

import (
	"threadlab/internal/core"
	"threadlab/pkg/domain"
)

type sessionAction func(s *core.Session, body []byte) error

func control(fn func(s *core.Session)) sessionAction {
	return func(s *core.Session, _ []byte) error {
		fn(s)
		return nil
	}
}

type stateRequest struct {
	State domain.ThreadStateID `json:"state"`
}

type techniqueRequest struct {
	Technique domain.TechniqueID `json:"technique"`
}

type speedRequest struct {
	Speed int `json:"speed"`
}

type threadsRequest struct {
	Count int `json:"count"`
}

type viewRequest struct {
	Mode domain.ViewMode `json:"mode"`
}

// sessionActions maps "<widget>/<action>" to the widget call it performs.
var sessionActions = map[string]sessionAction{
	"lifecycle/select": func(s *core.Session, body []byte) error {
		var req stateRequest
		if err := decodeBody(body, &req); err != nil {
			return err
		}
		return s.Lifecycle().SelectState(req.State)
	},
	"lifecycle/play": control(func(s *core.Session) { s.Lifecycle().PlayLifecycle() }),

	"race/start":  control(func(s *core.Session) { s.Race().Start() }),
	"race/pause":  control(func(s *core.Session) { s.Race().Pause() }),
	"race/toggle": control(func(s *core.Session) { s.Race().Toggle() }),
	"race/reset":  control(func(s *core.Session) { s.Race().Reset() }),

	"deadlock/play":   control(func(s *core.Session) { s.Deadlock().Play() }),
	"deadlock/pause":  control(func(s *core.Session) { s.Deadlock().Pause() }),
	"deadlock/toggle": control(func(s *core.Session) { s.Deadlock().Toggle() }),
	"deadlock/reset":  control(func(s *core.Session) { s.Deadlock().Reset() }),

	"context-switch/start":  control(func(s *core.Session) { s.ContextSwitch().Start() }),
	"context-switch/pause":  control(func(s *core.Session) { s.ContextSwitch().Pause() }),
	"context-switch/toggle": control(func(s *core.Session) { s.ContextSwitch().Toggle() }),
	"context-switch/reset":  control(func(s *core.Session) { s.ContextSwitch().Reset() }),
	"context-switch/speed": func(s *core.Session, body []byte) error {
		var req speedRequest
		if err := decodeBody(body, &req); err != nil {
			return err
		}
		return s.ContextSwitch().SetSpeed(req.Speed)
	},

	"sync/select": func(s *core.Session, body []byte) error {
		var req techniqueRequest
		if err := decodeBody(body, &req); err != nil {
			return err
		}
		return s.Comparator().SelectTechnique(req.Technique)
	},
	"sync/toggle": func(s *core.Session, body []byte) error {
		var req techniqueRequest
		if err := decodeBody(body, &req); err != nil {
			return err
		}
		return s.Comparator().ToggleView(req.Technique)
	},

	"cpu/start":  control(func(s *core.Session) { s.CPU().Start() }),
	"cpu/pause":  control(func(s *core.Session) { s.CPU().Pause() }),
	"cpu/toggle": control(func(s *core.Session) { s.CPU().Toggle() }),
	"cpu/threads": func(s *core.Session, body []byte) error {
		var req threadsRequest
		if err := decodeBody(body, &req); err != nil {
			return err
		}
		return s.CPU().SetThreadCount(req.Count)
	},
	"cpu/view": func(s *core.Session, body []byte) error {
		var req viewRequest
		if err := decodeBody(body, &req); err != nil {
			return err
		}
		return s.CPU().SetViewMode(req.Mode)
	},
}
