package port

import (
	"rebo/internal/fault"
)

// Schemes maps registered scheme names to their actors. The callback
// and system schemes share the event actor's queue machinery.
type Schemes struct {
	actors map[string]Actor
}

// NewSchemes registers the standard scheme set.
func NewSchemes() *Schemes {
	s := &Schemes{actors: make(map[string]Actor, 9)}
	s.Register(NewClipboardActor())
	s.Register(NewConsoleActor())
	s.Register(NewDirActor())
	s.Register(NewEventActor())
	s.Register(&eventActor{base{scheme: "callback"}})
	s.Register(&eventActor{base{scheme: "system"}})
	s.Register(NewTCPActor())
	s.Register(NewUDPActor())
	s.Register(NewSignalActor())
	return s
}

// Register installs an actor under its scheme name.
func (s *Schemes) Register(a Actor) {
	s.actors[a.Scheme()] = a
}

// Lookup returns the actor for a scheme.
func (s *Schemes) Lookup(scheme string) (Actor, bool) {
	a, ok := s.actors[scheme]
	return a, ok
}

// Open makes a port for the spec's scheme. The port is created closed;
// dispatch VerbOpen to open it.
func (s *Schemes) Open(ctx *Context, spec *Spec) (*Port, *fault.Error) {
	a, ok := s.actors[spec.Scheme]
	if !ok {
		return nil, fault.New(fault.ErrInvalidSpec, "unknown scheme %q", spec.Scheme)
	}
	return New(ctx, spec, a), nil
}
