package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	vegascript "github.com/everydev1618/vegascript"
)

// initCmd writes a default config file under the vegascript home.
func initCmd(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing config file")
	store := fs.String("store", vegascript.DefaultStore, "Store driver: json or sqlite")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	path := vegascript.ConfigPath()
	if _, err := os.Stat(path); err == nil && !*force {
		fmt.Printf("Config already exists at %s (use --force to overwrite)\n", path)
		return
	}
	if err := vegascript.EnsureHome(); err != nil {
		fatalf("Error: %v", err)
	}
	toolsDir := filepath.Join(vegascript.Home(), "tools")
	if err := os.MkdirAll(toolsDir, 0755); err != nil {
		fatalf("Error: %v", err)
	}

	cfg := vegascript.Config{
		MaxTicks: vegascript.DefaultMaxTicks,
		Deadline: "5m",
		Store:    *store,
		Log:      vegascript.LogConfig{Level: vegascript.DefaultLogLevel},
		Tools:    []string{toolsDir},
	}
	if err := cfg.Validate(); err != nil {
		fatalf("Error: %v", err)
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		fatalf("Error: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		fatalf("Error writing %s: %v", path, err)
	}

	fmt.Printf("Wrote %s\n", path)
	fmt.Printf("Put YAML tool definitions in %s\n", toolsDir)
}
