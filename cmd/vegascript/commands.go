package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	vegascript "github.com/everydev1618/vegascript"
	"github.com/everydev1618/vegascript/ast"
	"github.com/everydev1618/vegascript/frame"
	"github.com/everydev1618/vegascript/interp"
	"github.com/everydev1618/vegascript/value"
)

// runCmd starts a script from a JSON or YAML script document.
func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath, sandbox := commonFlags(fs)
	input := fs.String("input", "", "Script input as JSON, or @file")
	id := fs.String("id", "", "Agent id (default: random)")
	output := fs.String("output", "", "Output format: json or text (default)")

	fs.Usage = func() {
		fmt.Println(`Usage: vegascript run <script.json|script.yaml> [options]

Start a script and tick it until it finishes, awaits an event, or the
configured max_ticks/deadline runs out. The agent is saved either way.

Options:`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(reorder(args)); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: no script file specified")
		fs.Usage()
		os.Exit(1)
	}

	e := setup(*configPath, *sandbox)
	defer e.store.Close()

	script, err := ast.LoadFile(fs.Arg(0))
	if err != nil {
		fatalf("Error: %v", err)
	}
	in, err := parseInput(*input)
	if err != nil {
		fatalf("Error parsing input: %v", err)
	}

	opts := []vegascript.Option{vegascript.WithLogger(e.logger)}
	if *id != "" {
		opts = append(opts, vegascript.WithID(*id))
	}
	agent, err := vegascript.Create(e.rt, script, in, opts...)
	if err != nil {
		fatalf("Error: %v", err)
	}
	tickAndSave(e, agent, *output)
}

// resumeCmd ticks a stored agent.
func resumeCmd(args []string) {
	fs := flag.NewFlagSet("resume", flag.ExitOnError)
	configPath, sandbox := commonFlags(fs)
	output := fs.String("output", "", "Output format: json or text (default)")
	fs.Usage = func() {
		fmt.Println(`Usage: vegascript resume <agent-id> [options]

Options:`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(reorder(args)); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	e := setup(*configPath, *sandbox)
	defer e.store.Close()

	agent := load(e, fs.Arg(0))
	tickAndSave(e, agent, *output)
}

// eventCmd pushes an event to an awaiting call.
func eventCmd(args []string) {
	fs := flag.NewFlagSet("event", flag.ExitOnError)
	configPath, sandbox := commonFlags(fs)
	tick := fs.Bool("tick", false, "Tick the agent after delivering the event")
	output := fs.String("output", "", "Output format: json or text (default)")
	fs.Usage = func() {
		fmt.Println(`Usage: vegascript event <agent-id> <trace> <json-payload|@file> [options]

Deliver an event to the awaiting tool call at trace.

Options:`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(reorder(args)); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 3 {
		fs.Usage()
		os.Exit(1)
	}

	e := setup(*configPath, *sandbox)
	defer e.store.Close()

	agent := load(e, fs.Arg(0))
	payload, err := parseInput(fs.Arg(2))
	if err != nil {
		fatalf("Error parsing payload: %v", err)
	}
	if err := agent.PushEvent(fs.Arg(1), payload); err != nil {
		fatalf("Error: %v", err)
	}
	if *tick {
		tickAndSave(e, agent, *output)
		return
	}
	save(e, agent)
	fmt.Printf("Event delivered to %s at %s\n", agent.ID, fs.Arg(1))
}

// inspectCmd prints a stored agent.
func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	configPath, sandbox := commonFlags(fs)
	raw := fs.Bool("raw", false, "Print the serialized document")
	if err := fs.Parse(reorder(args)); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: vegascript inspect <agent-id> [--raw]")
		os.Exit(1)
	}

	e := setup(*configPath, *sandbox)
	defer e.store.Close()

	if *raw {
		s, err := e.store.Load(context.Background(), fs.Arg(0))
		if err != nil {
			fatalf("Error: %v", err)
		}
		data, _ := json.MarshalIndent(s, "", "  ")
		fmt.Println(string(data))
		return
	}

	agent := load(e, fs.Arg(0))
	fmt.Printf("Agent:   %s\n", agent.ID)
	fmt.Printf("Created: %s\n", agent.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Status:  %s\n", agent.Status())
	if msg := agent.Err(); msg != "" {
		fmt.Printf("Error:   %s\n", msg)
	}
	if chain := agent.Chain(); len(chain) > 0 {
		fmt.Printf("Chain:   %d earlier script(s)\n", len(chain))
	}
	fmt.Println()
	root, _ := agent.Frame("0")
	printFrame(os.Stdout, root, 0)
}

// listCmd lists stored agents.
func listCmd(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath, sandbox := commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	e := setup(*configPath, *sandbox)
	defer e.store.Close()

	list, err := e.store.List(context.Background())
	if err != nil {
		fatalf("Error: %v", err)
	}
	if len(list) == 0 {
		fmt.Println("No agents stored.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tHASH\tCHAIN\tUPDATED")
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.Status, short(s.Hash), s.Chain, s.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	w.Flush()
}

// rmCmd deletes stored agents.
func rmCmd(args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	configPath, sandbox := commonFlags(fs)
	if err := fs.Parse(reorder(args)); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: vegascript rm <agent-id>...")
		os.Exit(1)
	}

	e := setup(*configPath, *sandbox)
	defer e.store.Close()

	for _, id := range fs.Args() {
		if err := e.store.Delete(context.Background(), id); err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Printf("Deleted %s\n", id)
	}
}

// toolsCmd lists the tool catalog.
func toolsCmd(args []string) {
	fs := flag.NewFlagSet("tools", flag.ExitOnError)
	configPath, sandbox := commonFlags(fs)
	asJSON := fs.Bool("json", false, "Print MCP tool descriptors as JSON")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	e := setup(*configPath, *sandbox)
	defer e.store.Close()

	catalog := e.rt.Catalog()
	if *asJSON {
		data, err := json.MarshalIndent(catalog, "", "  ")
		if err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Println(string(data))
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tTAGS\tDESCRIPTION")
	for _, t := range catalog {
		name := t.Tool.Name
		if t.Namespace != "" {
			name = t.Namespace + "." + name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, strings.Join(t.Tags, ","), t.Tool.Description)
	}
	w.Flush()
}

// tickAndSave ticks under the configured controller, saves, and reports.
// Ctrl-C stops the tick at the next checkpoint and the agent is still saved.
func tickAndSave(e *env, agent *vegascript.Agent, output string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := agent.Tick(ctx, e.cfg.Controller())
	if err != nil {
		// The agent is unchanged; save it anyway so a first run is not lost.
		save(e, agent)
		fatalf("Error: %v", err)
	}
	save(e, agent)
	report(agent, res, output)
}

func report(agent *vegascript.Agent, res interp.TickResult, output string) {
	if output == "json" {
		out := map[string]any{
			"id":      agent.ID,
			"status":  res.Status,
			"reason":  res.Reason,
			"ticks":   res.TicksUsed,
			"pending": agent.Pending(),
		}
		if v, ok := agent.Output(); ok {
			if n, err := value.ToNative(v); err == nil {
				out["output"] = n
			}
		}
		if res.Error != "" {
			out["error"] = res.Error
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Agent %s: %s (%s, %.1f ticks)\n", agent.ID, res.Status, res.Reason, res.TicksUsed)
	switch res.Status {
	case frame.StatusDone:
		if v, ok := agent.Output(); ok {
			fmt.Println(display(v, "  "))
		}
	case frame.StatusError:
		fmt.Printf("Error: %s\n", res.Error)
	case frame.StatusAwaiting:
		fmt.Println("Awaiting events at:")
		for _, tr := range agent.Pending() {
			fmt.Printf("  %s\n", tr)
		}
	}
}

func load(e *env, id string) *vegascript.Agent {
	s, err := e.store.Load(context.Background(), id)
	if err != nil {
		fatalf("Error: %v", err)
	}
	agent, err := vegascript.Restore(s, e.rt, vegascript.WithLogger(e.logger))
	if err != nil {
		fatalf("Error: %v", err)
	}
	return agent
}

func save(e *env, agent *vegascript.Agent) {
	s, err := agent.Serialize()
	if err != nil {
		fatalf("Error serializing agent: %v", err)
	}
	if err := e.store.Save(context.Background(), s); err != nil {
		fatalf("Error saving agent: %v", err)
	}
}

// printFrame writes one line per materialized frame, indented by depth.
func printFrame(w io.Writer, f *frame.Frame, depth int) {
	if f == nil {
		return
	}
	line := fmt.Sprintf("%s%-12s %-8s", strings.Repeat("  ", depth), f.Trace, f.Status)
	switch {
	case f.Err != "":
		line += " ! " + f.Err
	case f.Status == frame.StatusDone:
		line += " = " + clip(display(f.Value, ""), 60)
	}
	if n := len(f.Events); n > 0 {
		line += fmt.Sprintf(" [%d event(s), %d pending]", n, len(f.Pending()))
	}
	fmt.Fprintln(w, line)
	for _, c := range f.Children {
		printFrame(w, c, depth+1)
	}
}

func display(v value.Value, indent string) string {
	s, ok, err := value.Stringify(v, indent)
	if err != nil || !ok {
		return value.ToString(v)
	}
	return s
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// reorder moves flags ahead of positional arguments so flag.Parse sees
// them in `run script.json --input x`.
func reorder(args []string) []string {
	var flags, pos []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			pos = append(pos, args[i+1:]...)
			break
		}
		if strings.HasPrefix(a, "-") && len(a) > 1 {
			flags = append(flags, a)
			if !strings.Contains(a, "=") && i+1 < len(args) && !isBoolFlag(a) {
				flags = append(flags, args[i+1])
				i++
			}
			continue
		}
		pos = append(pos, a)
	}
	return append(flags, pos...)
}

func isBoolFlag(a string) bool {
	switch strings.TrimLeft(a, "-") {
	case "tick", "raw", "json":
		return true
	}
	return false
}
