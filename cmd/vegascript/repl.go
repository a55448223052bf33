package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	vegascript "github.com/everydev1618/vegascript"
	"github.com/everydev1618/vegascript/value"
)

// replCmd resolves an agent's awaiting calls from the terminal.
func replCmd(args []string) {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	configPath, sandbox := commonFlags(fs)

	fs.Usage = func() {
		fmt.Println(`Usage: vegascript repl <agent-id> [options]

Load a stored agent and resolve its awaiting tool calls interactively.
The agent is saved after every command that changes it.

Options:`)
		fs.PrintDefaults()
		fmt.Println()
		printReplHelp()
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

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      fmt.Sprintf("[%s]> ", short(agent.ID)),
		HistoryFile: filepath.Join(vegascript.Home(), "repl_history"),
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("pending"),
			readline.PcItem("show"),
			readline.PcItem("event"),
			readline.PcItem("approve"),
			readline.PcItem("reject"),
			readline.PcItem("tick"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer rl.Close()

	fmt.Printf("Agent %s is %s. Type help for commands, quit to exit.\n", agent.ID, agent.Status())
	printPending(agent)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil { // io.EOF
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)
		switch cmd {
		case "quit", "exit", "q":
			return
		case "help", "h":
			printReplHelp()
		case "pending", "p":
			printPending(agent)
		case "show", "s":
			tr := rest
			if tr == "" {
				tr = "0"
			}
			f, ok := agent.Frame(tr)
			if !ok {
				fmt.Printf("No frame at %s\n", tr)
				continue
			}
			printFrame(os.Stdout, f, 0)
		case "event", "e":
			tr, payload, ok := strings.Cut(rest, " ")
			if !ok {
				fmt.Println("Usage: event <trace> <json>")
				continue
			}
			v, err := value.ParseJSON(payload)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			deliver(e, agent, tr, v)
		case "approve", "reject":
			tr, comment, _ := strings.Cut(rest, " ")
			if tr == "" {
				if pending := agent.Pending(); len(pending) == 1 {
					tr = pending[0]
				} else {
					fmt.Printf("Usage: %s <trace> [comment]\n", cmd)
					continue
				}
			}
			deliver(e, agent, tr, value.ObjectOf("approved", cmd == "approve", "comment", comment))
		case "tick", "t":
			tickAndSave(e, agent, "")
		default:
			fmt.Printf("Unknown command: %s (type help)\n", cmd)
		}
	}
}

// deliver pushes an event, then ticks so the tool sees it.
func deliver(e *env, agent *vegascript.Agent, tr string, payload value.Value) {
	if err := agent.PushEvent(tr, payload); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	res, err := agent.Tick(context.Background(), e.cfg.Controller())
	save(e, agent)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	report(agent, res, "")
}

func printPending(agent *vegascript.Agent) {
	pending := agent.Pending()
	if len(pending) == 0 {
		fmt.Println("Nothing is awaiting an event.")
		return
	}
	fmt.Println("Awaiting:")
	for _, tr := range pending {
		f, _ := agent.Frame(tr)
		var args []string
		for _, c := range f.Children {
			if c != nil {
				args = append(args, clip(display(c.Value, ""), 40))
			}
		}
		fmt.Printf("  %-12s (%s)", tr, strings.Join(args, ", "))
		if n := len(f.Events); n > 0 {
			fmt.Printf(" %d event(s) so far", n)
		}
		fmt.Println()
	}
}

func printReplHelp() {
	fmt.Println(`Commands:
  pending                   List awaiting calls and their arguments
  show [trace]              Print the frame tree under trace (default: root)
  event <trace> <json>      Deliver an event and tick
  approve [trace] [comment] Deliver {"approved": true} and tick
  reject [trace] [comment]  Deliver {"approved": false} and tick
  tick                      Tick the agent
  quit                      Exit`)
}
