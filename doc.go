// Package vegascript runs short, sandboxed scripts that call host-defined
// tools, and can pause and resume them across processes.
//
// A script is a tree of statements (see package ast) written by a planner,
// typically a language model. It runs as an Agent whose whole execution state
// is a tree of frames keyed by structural trace. Every tick walks the script
// from the top, reusing finished frames, so work already done is never
// repeated. A tool can suspend its call until an external event arrives; the
// agent can then be serialized, stored, restored elsewhere and resumed.
//
// # Quick Start
//
// Register tools and run a script:
//
//	rt := tools.NewRuntime()
//	rt.MustRegister("greet", &tools.Tool{
//	    Description: "Greet someone",
//	    Input:       &jsonschema.Schema{Type: "string"},
//	    Handler: func(ctx context.Context, c *tools.Call) (tools.Outcome, error) {
//	        return tools.Done("Hello, " + value.ToString(c.Input)), nil
//	    },
//	})
//
//	script := ast.NewScript(`greet("Ada")`,
//	    ast.Do(ast.CallOf(ast.Ident("greet"), ast.Str("Ada"))))
//
//	agent, err := vegascript.Create(rt, script, value.Undefined)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := agent.Tick(ctx, interp.NewController(interp.WithQuota(100)))
//
// # Events
//
// A tool with an event schema may return tools.Await(). The tick then stops
// with the call frame awaiting; the host delivers the event by trace and
// ticks again:
//
//	for _, tr := range agent.Pending() {
//	    agent.PushEvent(tr, value.ObjectOf("approved", true))
//	}
//	res, err = agent.Tick(ctx, nil)
//
// # Persistence
//
// Serialize captures the agent as an AgentSerialized document: the script
// code and hash, a value heap, and the compact frame tree. Package store
// saves these documents to JSON files or SQLite:
//
//	s, _ := agent.Serialize()
//	st.Save(ctx, s)
//	...
//	s, _ = st.Load(ctx, id)
//	agent, err = vegascript.Restore(s, rt)
package vegascript
