package vegascript

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/everydev1618/vegascript/ast"
	"github.com/everydev1618/vegascript/frame"
	"github.com/everydev1618/vegascript/heap"
	"github.com/everydev1618/vegascript/interp"
	"github.com/everydev1618/vegascript/tools"
	"github.com/everydev1618/vegascript/trace"
	"github.com/everydev1618/vegascript/value"
)

// Agent is one script running against a tool runtime. Its whole execution
// state is the frame tree under Root; ticking advances it and Serialize
// captures it.
//
// An Agent serializes its own methods with a mutex, so one tick is in
// flight at a time. Distinct agents are independent.
type Agent struct {
	// ID identifies the agent across serialize/restore.
	ID string

	// CreatedAt is the epoch frame timestamps are stored relative to.
	CreatedAt time.Time

	mu     sync.Mutex
	script *ast.Script
	code   string
	hash   string
	root   *frame.Frame
	chain  []*AgentSerialized
	eng    *interp.Engine
	logger *slog.Logger
}

// Option configures an Agent.
type Option func(*agentConfig)

type agentConfig struct {
	id         string
	logger     *slog.Logger
	clock      func() time.Time
	engineOpts []interp.Option
	script     *ast.Script
}

// WithID sets the agent id instead of generating one.
func WithID(id string) Option {
	return func(c *agentConfig) {
		c.id = id
	}
}

// WithLogger sets the logger for the agent and its engine.
func WithLogger(l *slog.Logger) Option {
	return func(c *agentConfig) {
		c.logger = l
	}
}

// WithClock sets the time source. Tests use it to get stable timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *agentConfig) {
		c.clock = clock
	}
}

// WithEngineOptions passes options through to the interpreter.
func WithEngineOptions(opts ...interp.Option) Option {
	return func(c *agentConfig) {
		c.engineOpts = append(c.engineOpts, opts...)
	}
}

// WithScript makes Restore check the stored runtime against script
// instead of trusting the stored document alone.
func WithScript(script *ast.Script) Option {
	return func(c *agentConfig) {
		c.script = script
	}
}

func newConfig(opts []Option) *agentConfig {
	c := &agentConfig{
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *agentConfig) engine(rt *tools.Runtime) *interp.Engine {
	opts := append([]interp.Option{
		interp.WithLogger(c.logger),
		interp.WithClock(c.clock),
	}, c.engineOpts...)
	return interp.New(rt, opts...)
}

// Create starts script against rt with input bound to the root variable
// `input`; pass value.Undefined for none. No work is done until the first
// Tick.
func Create(rt *tools.Runtime, script *ast.Script, input value.Value, opts ...Option) (*Agent, error) {
	if script == nil || script.AST == nil {
		return nil, &ast.ParseError{Message: "script has no program"}
	}
	input, err := value.Normalize(input)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	c := newConfig(opts)
	code, err := script.Code()
	if err != nil {
		return nil, err
	}

	eng := c.engine(rt)
	a := &Agent{
		ID:        c.id,
		CreatedAt: eng.Now(),
		script:    script,
		code:      code,
		hash:      ast.HashCode(code),
		eng:       eng,
		logger:    c.logger,
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.root = eng.NewRoot(input)
	a.root.StartedAt = a.CreatedAt
	a.root.UpdatedAt = a.CreatedAt

	a.logger.Info("agent created", "agent", a.ID, "hash", a.hash[:12])
	return a, nil
}

// Tick advances the script until it finishes, suspends on an event, or the
// controller stops it. A nil controller runs without limits.
//
// A returned error is structural (*interp.RuntimeError or a serialization
// failure). The agent is left exactly as it was before the call and the
// tick may be retried once the cause is fixed.
func (a *Agent) Tick(ctx context.Context, ctrl *interp.RuntimeController) (interp.TickResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	res, err := a.eng.Tick(ctx, a.script.AST, a.root, ctrl)
	if err != nil {
		a.logger.Warn("tick failed", "agent", a.ID, "error", err)
		return res, &AgentError{AgentID: a.ID, Op: "tick", Err: err}
	}
	a.logger.Info("tick finished",
		"agent", a.ID,
		"ticks", res.TicksUsed,
		"reason", res.Reason,
		"status", res.Status,
	)
	return res, nil
}

// PushEvent delivers payload to the awaiting tool call at tr. The payload
// is coerced against the tool's event schema.
func (a *Agent) PushEvent(tr string, payload value.Value) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.eng.PushEvent(a.script.AST, a.root, tr, payload); err != nil {
		return &AgentError{AgentID: a.ID, Op: "push event", Err: err}
	}
	a.logger.Info("event pushed", "agent", a.ID, "trace", tr)
	return nil
}

// Status returns the root frame status.
func (a *Agent) Status() frame.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.root.Status
}

// Output returns the script result once the root is done.
func (a *Agent) Output() (value.Value, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.root.Status != frame.StatusDone {
		return value.Undefined, false
	}
	return a.root.Value, true
}

// Err returns the script failure message once the root is in error.
func (a *Agent) Err() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.root.Err
}

// Script returns the running script.
func (a *Agent) Script() *ast.Script {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.script
}

// Pending returns the traces of the tool calls waiting for an event, in
// evaluation order.
func (a *Agent) Pending() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []string
	frame.NewTree(a.root).Walk(func(f *frame.Frame) {
		if f.Status != frame.StatusAwaiting {
			return
		}
		for _, c := range f.Children {
			if c != nil && c.Status == frame.StatusAwaiting {
				return
			}
		}
		out = append(out, f.Trace)
	})
	return out
}

// Frame returns the live frame at tr. Callers must not mutate it.
func (a *Agent) Frame(tr string) (*frame.Frame, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return frame.NewTree(a.root).Get(tr)
}

// Chain returns the archived states of earlier scripts run by this agent,
// oldest first.
func (a *Agent) Chain() []*AgentSerialized {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*AgentSerialized(nil), a.chain...)
}

// Continue archives the finished script into the chain and starts script
// on the same agent with a fresh frame tree.
func (a *Agent) Continue(script *ast.Script, input value.Value) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.root.Status.Terminal() {
		return &AgentError{AgentID: a.ID, Op: "continue", Err: ErrNotFinished}
	}
	if script == nil || script.AST == nil {
		return &AgentError{AgentID: a.ID, Op: "continue", Err: &ast.ParseError{Message: "script has no program"}}
	}
	code, err := script.Code()
	if err != nil {
		return &AgentError{AgentID: a.ID, Op: "continue", Err: err}
	}
	archived, err := a.serialize(false)
	if err != nil {
		return &AgentError{AgentID: a.ID, Op: "continue", Err: err}
	}
	a.chain = append(a.chain, archived)
	a.script = script
	a.code = code
	a.hash = ast.HashCode(code)
	a.root = a.eng.NewRoot(input)
	a.logger.Info("agent continued", "agent", a.ID, "chain", len(a.chain), "hash", a.hash[:12])
	return nil
}

// RuntimeInfo identifies the script an agent runs.
type RuntimeInfo struct {
	// Code is the canonical script document.
	Code string `json:"code"`
	// Hash is the hex SHA-256 of Code.
	Hash string `json:"hash"`
}

// AgentSerialized is the persisted form of an agent. Frame timestamps are
// millisecond offsets from CreatedAt and every value lives in Heap.
type AgentSerialized struct {
	ID        string             `json:"id"`
	Runtime   RuntimeInfo        `json:"runtime"`
	CreatedAt int64              `json:"createdAt"`
	Heap      []heap.Entry       `json:"heap"`
	Root      *frame.Wire        `json:"root"`
	Output    *int               `json:"output,omitempty"`
	Chain     []*AgentSerialized `json:"chain,omitempty"`
}

// Serialize captures the agent state.
func (a *Agent) Serialize() (*AgentSerialized, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.serialize(true)
	if err != nil {
		return nil, &AgentError{AgentID: a.ID, Op: "serialize", Err: err}
	}
	return s, nil
}

func (a *Agent) serialize(withChain bool) (*AgentSerialized, error) {
	sr := heap.NewSerializer()
	root, err := frame.ToWire(a.root, a.CreatedAt, sr)
	if err != nil {
		return nil, err
	}
	s := &AgentSerialized{
		ID:        a.ID,
		Runtime:   RuntimeInfo{Code: a.code, Hash: a.hash},
		CreatedAt: a.CreatedAt.UnixMilli(),
		Root:      root,
	}
	if a.root.Status == frame.StatusDone {
		idx, err := sr.Push(a.root.Value)
		if err != nil {
			return nil, fmt.Errorf("output: %w", err)
		}
		s.Output = &idx
	}
	s.Heap = sr.Heap()
	if withChain && len(a.chain) > 0 {
		s.Chain = append([]*AgentSerialized(nil), a.chain...)
	}
	return s, nil
}

// Restore rebuilds an agent from its serialized form against rt. The script
// is decoded from the stored runtime code; WithScript additionally requires
// it to match a caller-supplied script.
func Restore(s *AgentSerialized, rt *tools.Runtime, opts ...Option) (*Agent, error) {
	if s == nil || s.Root == nil || s.ID == "" {
		return nil, ErrInvalidState
	}
	c := newConfig(opts)

	if got := ast.HashCode(s.Runtime.Code); got != s.Runtime.Hash {
		return nil, &AgentError{AgentID: s.ID, Op: "restore", Err: fmt.Errorf("%w: stored code hashes to %s", ErrScriptMismatch, got[:12])}
	}
	if c.script != nil {
		h, err := c.script.Hash()
		if err != nil {
			return nil, &AgentError{AgentID: s.ID, Op: "restore", Err: err}
		}
		if h != s.Runtime.Hash {
			return nil, &AgentError{AgentID: s.ID, Op: "restore", Err: ErrScriptMismatch}
		}
	}
	script, err := ast.Decode([]byte(s.Runtime.Code))
	if err != nil {
		return nil, &AgentError{AgentID: s.ID, Op: "restore", Err: err}
	}

	epoch := time.UnixMilli(s.CreatedAt).UTC()
	root, err := frame.FromWire(s.Root, epoch, trace.Root, heap.NewDeserializer(s.Heap))
	if err != nil {
		return nil, &AgentError{AgentID: s.ID, Op: "restore", Err: err}
	}

	a := &Agent{
		ID:        s.ID,
		CreatedAt: epoch,
		script:    script,
		code:      s.Runtime.Code,
		hash:      s.Runtime.Hash,
		root:      root,
		chain:     append([]*AgentSerialized(nil), s.Chain...),
		eng:       c.engine(rt),
		logger:    c.logger,
	}
	a.logger.Info("agent restored", "agent", a.ID, "status", root.Status, "chain", len(a.chain))
	return a, nil
}
