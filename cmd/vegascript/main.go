// Package main provides the vegascript CLI.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	vegascript "github.com/everydev1618/vegascript"
	"github.com/everydev1618/vegascript/store"
	"github.com/everydev1618/vegascript/tools"
	"github.com/everydev1618/vegascript/value"
)

var (
	version = "dev"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "run":
		runCmd(args)
	case "resume":
		resumeCmd(args)
	case "event":
		eventCmd(args)
	case "inspect":
		inspectCmd(args)
	case "list", "ls":
		listCmd(args)
	case "rm":
		rmCmd(args)
	case "tools":
		toolsCmd(args)
	case "repl":
		replCmd(args)
	case "init":
		initCmd(args)
	case "version":
		fmt.Printf("vegascript %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`vegascript - resumable tool scripts

Usage:
  vegascript <command> [options]

Commands:
  run       Start a script and tick it until it finishes, awaits or runs out of ticks
  resume    Tick a stored agent again
  event     Deliver an event to an awaiting tool call
  inspect   Show a stored agent's frame tree
  list      List stored agents
  rm        Delete a stored agent
  tools     List the available tools
  repl      Resolve an agent's awaiting calls interactively
  init      Write a default config file
  version   Print version information
  help      Show this help message

Examples:
  vegascript run deploy.json --input '{"env":"prod"}'
  vegascript event 3f2c0a1e 0:2:0 '{"approved":true}' --tick
  vegascript repl 3f2c0a1e

Run 'vegascript <command> --help' for more information on a command.`)
}

// env is what every command that touches agents needs.
type env struct {
	cfg    *vegascript.Config
	logger *slog.Logger
	rt     *tools.Runtime
	store  store.Store
}

// commonFlags registers the flags shared by agent commands.
func commonFlags(fs *flag.FlagSet) (configPath *string, sandbox *string) {
	configPath = fs.String("config", vegascript.ConfigPath(), "Config file")
	sandbox = fs.String("sandbox", "", "Directory the fs and shell tools are confined to (default: current directory)")
	return configPath, sandbox
}

// setup loads config, logging, tools and the store, exiting on failure.
func setup(configPath, sandbox string) *env {
	cfg, err := vegascript.LoadConfig(configPath)
	if err != nil {
		fatalf("Error loading config: %v", err)
	}
	level, _ := cfg.LogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	rt, err := loadRuntime(cfg, logger, sandbox)
	if err != nil {
		fatalf("Error loading tools: %v", err)
	}

	if err := vegascript.EnsureHome(); err != nil {
		fatalf("Error creating %s: %v", vegascript.Home(), err)
	}
	st, err := store.Open(cfg, logger)
	if err != nil {
		fatalf("Error opening store: %v", err)
	}
	return &env{cfg: cfg, logger: logger, rt: rt, store: st}
}

// loadRuntime registers the built-in tools and every YAML tool named in cfg.
func loadRuntime(cfg *vegascript.Config, logger *slog.Logger, sandbox string) (*tools.Runtime, error) {
	rt := tools.NewRuntime(tools.WithLogger(logger), tools.WithSettings(cfg.Settings))

	if sandbox == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		sandbox = wd
	}
	if err := rt.RegisterBuiltins(tools.WithSandbox(sandbox)); err != nil {
		return nil, err
	}

	for _, p := range cfg.Tools {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			err = rt.LoadDirectory(p)
		} else {
			err = rt.LoadFile(p)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return rt, nil
}

// parseInput reads a JSON value given inline or as @file.
func parseInput(s string) (value.Value, error) {
	if s == "" {
		return value.Undefined, nil
	}
	if strings.HasPrefix(s, "@") {
		data, err := os.ReadFile(s[1:])
		if err != nil {
			return nil, err
		}
		s = string(data)
	}
	return value.ParseJSON(s)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
