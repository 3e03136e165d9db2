// Package wizard walks a command's params one at a time, collecting a value
// for each, and resolves the template once the last value is in.
//
// A Session is a pure state machine: it never touches the UI. Callers render
// whatever Prompt describes and feed the user's answer back through Submit,
// Choose or Cancel.
package wizard

import (
	"errors"
	"fmt"
	"strings"

	"cmdoverlay/model"
	"cmdoverlay/runner"
)

var (
	ErrEmptyValue  = errors.New("value is empty")
	ErrNotAnOption = errors.New("value is not one of the choices")
	ErrFinished    = errors.New("session is finished")
	ErrCancelled   = errors.New("session was cancelled")
)

// Mode tells the UI which control to render for a param.
type Mode int

const (
	ModeFreeText Mode = iota
	ModeChoice
)

func (m Mode) String() string {
	if m == ModeChoice {
		return "choice"
	}
	return "text"
}

// State of a session.
type State int

const (
	StateAwaiting State = iota
	StateComplete
	StateCancelled
)

// Prompt describes the param currently being asked for.
type Prompt struct {
	Param   string
	Index   int
	Total   int
	Mode    Mode
	Choices []string
	// Default pre-fills free-text input, typically the last value used.
	Default string
}

// Option configures a Session.
type Option func(*Session)

// WithResolver replaces runner.Default.
func WithResolver(r runner.Resolver) Option {
	return func(s *Session) { s.resolver = r }
}

// WithDefaults supplies pre-fill values keyed by param name.
func WithDefaults(defaults map[string]string) Option {
	return func(s *Session) { s.defaults = defaults }
}

// Session is one run of the wizard for one command.
type Session struct {
	cmd      model.Command
	params   []string
	values   []string
	resolver runner.Resolver
	defaults map[string]string

	state  State
	result string
	err    error
}

// Start opens a session. A command without params is complete immediately.
func Start(cmd model.Command, opts ...Option) *Session {
	s := &Session{
		cmd:      cmd,
		params:   runner.Distinct(cmd.Params),
		resolver: runner.Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.values = make([]string, 0, len(s.params))
	if len(s.params) == 0 {
		s.finish()
	}
	return s
}

// Command returns the command this session fills in.
func (s *Session) Command() model.Command { return s.cmd }

// State returns the current state.
func (s *Session) State() State { return s.state }

// Index is the position of the param being asked for; len(params) once complete.
func (s *Session) Index() int { return len(s.values) }

// Done reports whether every value has been collected.
func (s *Session) Done() bool { return s.state == StateComplete }

// Prompt describes what to ask next. ok is false once the session has left
// the awaiting state.
func (s *Session) Prompt() (p Prompt, ok bool) {
	if s.state != StateAwaiting {
		return Prompt{}, false
	}
	i := len(s.values)
	name := s.params[i]
	p = Prompt{
		Param:   name,
		Index:   i,
		Total:   len(s.params),
		Mode:    ModeFreeText,
		Default: s.defaults[name],
	}
	if choices := s.cmd.Choices(name); choices != nil {
		p.Mode = ModeChoice
		p.Choices = append([]string(nil), choices...)
		p.Default = ""
	}
	return p, true
}

// Submit supplies the value for the current param. In choice mode the value
// must be one of the choices; in free-text mode it is trimmed and must not be
// blank. A rejected value leaves the session where it was.
func (s *Session) Submit(value string) error {
	p, ok := s.Prompt()
	if !ok {
		return s.closedErr()
	}

	if p.Mode == ModeChoice {
		for _, c := range p.Choices {
			if c == value {
				return s.accept(value)
			}
		}
		return fmt.Errorf("%s: %w", p.Param, ErrNotAnOption)
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%s: %w", p.Param, ErrEmptyValue)
	}
	return s.accept(value)
}

// Choose picks the i-th choice of the current param.
func (s *Session) Choose(i int) error {
	p, ok := s.Prompt()
	if !ok {
		return s.closedErr()
	}
	if p.Mode != ModeChoice || i < 0 || i >= len(p.Choices) {
		return fmt.Errorf("%s: choice %d: %w", p.Param, i, ErrNotAnOption)
	}
	return s.accept(p.Choices[i])
}

// Cancel aborts the session. Nothing is resolved and no result is produced.
func (s *Session) Cancel() {
	if s.state != StateAwaiting {
		return
	}
	s.state = StateCancelled
	s.values = nil
}

// Values returns a copy of the values collected so far.
func (s *Session) Values() []string {
	return append([]string(nil), s.values...)
}

// Params returns the distinct params in prompt order.
func (s *Session) Params() []string {
	return append([]string(nil), s.params...)
}

// Result returns the resolved command. The error is set if resolution failed.
func (s *Session) Result() (string, error) {
	if s.state != StateComplete {
		return "", s.closedErr()
	}
	return s.result, s.err
}

func (s *Session) accept(value string) error {
	s.values = append(s.values, value)
	if len(s.values) == len(s.params) {
		s.finish()
		return s.err
	}
	return nil
}

func (s *Session) finish() {
	s.state = StateComplete
	s.result, s.err = s.resolver.Resolve(s.cmd.Template, s.params, s.cmd.Options, s.values)
	if s.err != nil {
		s.err = fmt.Errorf("resolve %q: %w", s.cmd.Template, s.err)
	}
}

func (s *Session) closedErr() error {
	switch s.state {
	case StateCancelled:
		return ErrCancelled
	case StateAwaiting:
		return errors.New("session is not complete")
	}
	return ErrFinished
}
