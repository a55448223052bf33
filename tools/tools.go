package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/everydev1618/vegascript/frame"
	"github.com/everydev1618/vegascript/value"
)

// Standard errors
var (
	// ErrToolNotFound is returned when a tool is not registered
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolAlreadyRegistered is returned when trying to register a duplicate tool name.
	ErrToolAlreadyRegistered = errors.New("tool already registered")

	// ErrNoEventSchema is returned when a tool without an event schema is
	// asked to accept events or to await.
	ErrNoEventSchema = errors.New("tool declares no event schema")

	// ErrInvalidPath is returned for empty or malformed dotted tool paths.
	ErrInvalidPath = errors.New("invalid tool path")
)

// ToolError wraps errors with tool context.
type ToolError struct {
	ToolName string
	Err      error
}

func (e *ToolError) Error() string {
	return "tool " + e.ToolName + ": " + e.Err.Error()
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// HandlerError is a failure raised by a tool handler. It fails the call
// frame, not the tick.
type HandlerError struct {
	ToolName string
	Err      error
}

func (e *HandlerError) Error() string {
	return e.ToolName + ": " + e.Err.Error()
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Handler implements a tool. It receives the call context and returns
// Done(value) or Await().
type Handler func(ctx context.Context, call *Call) (Outcome, error)

// Middleware wraps tool execution.
type Middleware func(Handler) Handler

// Tool is a host-defined operation callable from scripts.
type Tool struct {
	// Name is the full dotted path, set at registration.
	Name        string
	Title       string
	Description string
	Tags        []string

	Input       *jsonschema.Schema
	Output      *jsonschema.Schema
	State       *jsonschema.Schema
	Event       *jsonschema.Schema
	Interaction *jsonschema.Schema

	Handler Handler

	resolved map[Role]*jsonschema.Resolved
}

// Stateful reports whether the tool persists per-call state.
func (t *Tool) Stateful() bool { return t.State != nil }

// AcceptsEvents reports whether the tool may await external events.
func (t *Tool) AcceptsEvents() bool { return t.Event != nil }

// Namespace groups tools and nested namespaces under one name.
type Namespace struct {
	name    string
	entries map[string]Entry
}

func newNamespace(name string) *Namespace {
	return &Namespace{name: name, entries: make(map[string]Entry)}
}

// Name returns the dotted path of the namespace; the root is "".
func (n *Namespace) Name() string { return n.name }

// Members returns the member names in sorted order.
func (n *Namespace) Members() []string {
	names := make([]string, 0, len(n.entries))
	for k := range n.entries {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Entry is one member of a namespace: exactly one of Tool or Namespace is
// set.
type Entry struct {
	Tool      *Tool
	Namespace *Namespace
}

// IsTool reports whether e is a tool.
func (e Entry) IsTool() bool { return e.Tool != nil }

// Runtime is the tree of tools available to a script.
type Runtime struct {
	root       *Namespace
	middleware []Middleware
	settings   map[string]any // defaults merged into YAML tool params
	logger     *slog.Logger
	mu         sync.RWMutex
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithLogger sets the logger used for tool invocations.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

// WithMiddleware installs middleware around every handler.
func WithMiddleware(mw ...Middleware) RuntimeOption {
	return func(r *Runtime) {
		r.middleware = append(r.middleware, mw...)
	}
}

// WithSettings sets values available to YAML tool templates when a call
// does not supply them.
func WithSettings(settings map[string]any) RuntimeOption {
	return func(r *Runtime) {
		r.settings = settings
	}
}

// NewRuntime creates an empty runtime.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		root:   newNamespace(""),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a tool under a dotted path such as "github.issues.create".
// Intermediate namespaces are created as needed.
func (r *Runtime) Register(path string, t *Tool) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	if t == nil || t.Handler == nil {
		return &ToolError{ToolName: path, Err: errors.New("handler is required")}
	}
	if err := t.compile(); err != nil {
		return &ToolError{ToolName: path, Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ns := r.root
	for i, seg := range segs[:len(segs)-1] {
		e, ok := ns.entries[seg]
		switch {
		case !ok:
			child := newNamespace(strings.Join(segs[:i+1], "."))
			ns.entries[seg] = Entry{Namespace: child}
			ns = child
		case e.IsTool():
			return fmt.Errorf("%w: %s is a tool, not a namespace", ErrToolAlreadyRegistered, e.Tool.Name)
		default:
			ns = e.Namespace
		}
	}

	leaf := segs[len(segs)-1]
	if _, exists := ns.entries[leaf]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, path)
	}
	t.Name = path
	ns.entries[leaf] = Entry{Tool: t}
	return nil
}

// MustRegister is Register for static setup code; it panics on error.
func (r *Runtime) MustRegister(path string, t *Tool) {
	if err := r.Register(path, t); err != nil {
		panic(err)
	}
}

// Use adds middleware to the tool chain.
func (r *Runtime) Use(mw Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw)
}

// Resolve walks segs from the root namespace.
func (r *Runtime) Resolve(segs ...string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e := Entry{Namespace: r.root}
	for _, seg := range segs {
		if e.Namespace == nil {
			return Entry{}, false
		}
		next, ok := e.Namespace.entries[seg]
		if !ok {
			return Entry{}, false
		}
		e = next
	}
	return e, true
}

// Has reports whether the root namespace has a member called name.
func (r *Runtime) Has(name string) bool {
	_, ok := r.Resolve(name)
	return ok
}

// Lookup returns the tool at a dotted path.
func (r *Runtime) Lookup(path string) (*Tool, error) {
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	e, ok := r.Resolve(segs...)
	if !ok || !e.IsTool() {
		return nil, &ToolError{ToolName: path, Err: ErrToolNotFound}
	}
	return e.Tool, nil
}

// Names returns every tool path in sorted order.
func (r *Runtime) Names() []string {
	var out []string
	r.Walk(func(t *Tool) { out = append(out, t.Name) })
	return out
}

// Globals returns the member names of the root namespace.
func (r *Runtime) Globals() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.root.Members()
}

// Walk visits every tool in path order.
func (r *Runtime) Walk(fn func(*Tool)) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var walk func(*Namespace)
	walk = func(ns *Namespace) {
		for _, name := range ns.Members() {
			e := ns.entries[name]
			if e.IsTool() {
				fn(e.Tool)
			} else {
				walk(e.Namespace)
			}
		}
	}
	walk(r.root)
}

// Invoke runs the tool handler through the middleware chain. Handler
// failures come back as *HandlerError, output and state mismatches as
// *ValidationError.
func (r *Runtime) Invoke(ctx context.Context, t *Tool, call *Call) (Outcome, error) {
	r.mu.RLock()
	middleware := r.middleware
	logger := r.logger
	r.mu.RUnlock()

	exec := t.Handler
	for i := len(middleware) - 1; i >= 0; i-- {
		exec = middleware[i](exec)
	}

	logger.Debug("tool invoked", "tool", t.Name, "trace", call.Trace, "events", len(call.Events))
	out, err := exec(ctx, call)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return Outcome{}, err
		}
		logger.Info("tool failed", "tool", t.Name, "trace", call.Trace, "error", err)
		return Outcome{}, &HandlerError{ToolName: t.Name, Err: err}
	}

	if out.Awaiting() {
		if !t.AcceptsEvents() {
			return Outcome{}, &HandlerError{ToolName: t.Name, Err: ErrNoEventSchema}
		}
		logger.Info("tool awaiting", "tool", t.Name, "trace", call.Trace)
	} else {
		v, err := value.Normalize(out.Value())
		if err != nil {
			return Outcome{}, &HandlerError{ToolName: t.Name, Err: fmt.Errorf("output: %w", err)}
		}
		if v, err = t.Coerce(RoleOutput, v); err != nil {
			return Outcome{}, err
		}
		out = Done(v)
		logger.Debug("tool done", "tool", t.Name, "trace", call.Trace)
	}

	if call.State != nil && call.State.dirty {
		st, err := value.Normalize(call.State.Get())
		if err != nil {
			return Outcome{}, &HandlerError{ToolName: t.Name, Err: fmt.Errorf("state: %w", err)}
		}
		if st, err = t.Coerce(RoleState, st); err != nil {
			return Outcome{}, err
		}
		call.State.v = st
	}
	return out, nil
}

// Outcome is what a handler returns: a finished value or a request to
// suspend until an event arrives.
type Outcome struct {
	value value.Value
	await bool
}

// Done finishes the call with v.
func Done(v value.Value) Outcome {
	return Outcome{value: v}
}

// Await suspends the call until an event is pushed to it.
func Await() Outcome {
	return Outcome{value: value.Undefined, await: true}
}

// Awaiting reports whether the handler asked to suspend.
func (o Outcome) Awaiting() bool { return o.await }

// Value returns the result of a finished call.
func (o Outcome) Value() value.Value { return o.value }

// StateHandle is the read-modify-write capability over a call frame's
// persisted state slot.
type StateHandle struct {
	v     value.Value
	dirty bool
}

// NewStateHandle wraps v.
func NewStateHandle(v value.Value) *StateHandle {
	return &StateHandle{v: v}
}

// Get returns the current state.
func (s *StateHandle) Get() value.Value { return s.v }

// Set replaces the state.
func (s *StateHandle) Set(v value.Value) {
	s.v = v
	s.dirty = true
}

// Call is the context passed to a handler.
type Call struct {
	Tool   string
	Trace  string
	Input  value.Value
	State  *StateHandle
	Events []*frame.Event
}

// Pending returns the events not yet marked processed.
func (c *Call) Pending() []*frame.Event {
	var out []*frame.Event
	for _, e := range c.Events {
		if !e.Processed {
			out = append(out, e)
		}
	}
	return out
}

// MarkProcessed flags e as consumed so later invocations skip it.
func (c *Call) MarkProcessed(e *frame.Event) {
	e.Processed = true
}

// Native returns the input as plain Go data.
func (c *Call) Native() (map[string]any, error) {
	n, err := value.ToNative(c.Input)
	if err != nil {
		return nil, err
	}
	switch m := n.(type) {
	case map[string]any:
		return m, nil
	case nil:
		return map[string]any{}, nil
	}
	return map[string]any{"input": n}, nil
}

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	segs := strings.Split(path, ".")
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return segs, nil
}
