package tools

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/everydev1618/vegascript/value"
)

// absPathRe matches absolute path tokens inside shell command strings.
// Stops at whitespace and common shell meta-characters.
var absPathRe = regexp.MustCompile(`(/[^\s"'<>|&;(){}\[\]\\]+)`)

// rewriteCommandPaths rewrites absolute paths in a shell command that escape
// the sandbox, redirecting them to sandbox/basename.
func rewriteCommandPaths(command, sandbox string) string {
	return absPathRe.ReplaceAllStringFunc(command, func(match string) string {
		clean := filepath.Clean(match)
		rel, err := filepath.Rel(sandbox, clean)
		if err != nil || strings.HasPrefix(rel, "..") {
			return filepath.Join(sandbox, filepath.Base(clean))
		}
		return match
	})
}

// sandboxEnv returns the current environment with HOME and TMPDIR pointed at
// the sandbox, preventing shell expansions like ~ from escaping.
func sandboxEnv(sandbox string) []string {
	env := os.Environ()
	result := make([]string, 0, len(env)+2)
	for _, e := range env {
		if strings.HasPrefix(e, "HOME=") || strings.HasPrefix(e, "TMPDIR=") {
			continue
		}
		result = append(result, e)
	}
	return append(result, "HOME="+sandbox, "TMPDIR="+sandbox)
}

// BuiltinOption configures RegisterBuiltins.
type BuiltinOption func(*builtins)

type builtins struct {
	sandbox string
	client  *http.Client
}

// WithSandbox confines the fs and shell tools to dir.
func WithSandbox(dir string) BuiltinOption {
	return func(b *builtins) {
		b.sandbox = filepath.Clean(dir)
	}
}

// WithHTTPClient sets the client used by http.fetch.
func WithHTTPClient(c *http.Client) BuiltinOption {
	return func(b *builtins) {
		b.client = c
	}
}

// resolve maps a script-supplied path into the sandbox. Paths that would
// leave it are rejected.
func (b *builtins) resolve(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("path is required")
	}
	if b.sandbox == "" {
		return p, nil
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(b.sandbox, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(b.sandbox, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the sandbox", p)
	}
	return p, nil
}

// RegisterBuiltins adds the standard host tools:
//
//	fs.read, fs.write, fs.append, fs.list   file access
//	shell.exec                              sh -c in the sandbox
//	http.fetch                              GET a URL as text
//	human.approve                           wait for an approval event
func (r *Runtime) RegisterBuiltins(opts ...BuiltinOption) error {
	b := &builtins{client: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(b)
	}

	defs := []struct {
		path string
		tool *Tool
	}{
		{"fs.read", &Tool{
			Description: "Read a file as text",
			Input: paramsSchema([]DynamicParamDef{
				{Name: "path", Description: "File path", Required: true},
			}),
			Output:  &jsonschema.Schema{Type: "string"},
			Handler: b.readFile,
		}},
		{"fs.write", &Tool{
			Description: "Write content to a file",
			Input: paramsSchema([]DynamicParamDef{
				{Name: "path", Description: "File path", Required: true},
				{Name: "content", Description: "Content to write", Required: true},
			}),
			Handler: b.writeFile(false),
		}},
		{"fs.append", &Tool{
			Description: "Append content to a file",
			Input: paramsSchema([]DynamicParamDef{
				{Name: "path", Description: "File path", Required: true},
				{Name: "content", Description: "Content to append", Required: true},
			}),
			Handler: b.writeFile(true),
		}},
		{"fs.list", &Tool{
			Description: "List a directory; directories end in /",
			Input: paramsSchema([]DynamicParamDef{
				{Name: "path", Description: "Directory path", Default: "."},
			}),
			Handler: b.listFiles,
		}},
		{"shell.exec", &Tool{
			Description: "Execute a shell command inside the sandbox",
			Input: paramsSchema([]DynamicParamDef{
				{Name: "command", Description: "Shell command to run (executed via sh -c)", Required: true},
				{Name: "workdir", Description: "Subdirectory to run the command in"},
				{Name: "timeout_seconds", Type: "number", Description: "Max seconds to wait before killing the command (default 60)"},
			}),
			Handler: b.execCommand,
		}},
		{"http.fetch", &Tool{
			Description: "Fetch a URL. HTML is stripped to plain text unless raw is true. Use start_index and max_length to paginate.",
			Input: paramsSchema([]DynamicParamDef{
				{Name: "url", Description: "URL to fetch", Required: true},
				{Name: "max_length", Type: "integer", Description: "Maximum number of characters to return (default 5000)"},
				{Name: "start_index", Type: "integer", Description: "Character offset to start from (default 0)"},
				{Name: "raw", Type: "boolean", Description: "Return raw content without HTML stripping"},
			}),
			Handler: b.fetch,
		}},
		{"human.approve", &Tool{
			Description: "Ask a human to approve a request and wait for the decision",
			Event:       ApprovalEventSchema(),
			Handler:     approvalHandler(""),
		}},
	}
	for _, d := range defs {
		if err := r.Register(d.path, d.tool); err != nil {
			return err
		}
	}
	return nil
}

func (b *builtins) readFile(ctx context.Context, c *Call) (Outcome, error) {
	params, err := c.Native()
	if err != nil {
		return Outcome{}, err
	}
	path, _ := params["path"].(string)
	p, err := b.resolve(path)
	if err != nil {
		return Outcome{}, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return Outcome{}, err
	}
	return Done(string(data)), nil
}

func (b *builtins) writeFile(appendMode bool) Handler {
	return func(ctx context.Context, c *Call) (Outcome, error) {
		params, err := c.Native()
		if err != nil {
			return Outcome{}, err
		}
		path, _ := params["path"].(string)
		content, _ := params["content"].(string)
		p, err := b.resolve(path)
		if err != nil {
			return Outcome{}, err
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return Outcome{}, err
		}
		flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		if appendMode {
			flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
		f, err := os.OpenFile(p, flag, 0644)
		if err != nil {
			return Outcome{}, err
		}
		defer f.Close()
		n, err := f.WriteString(content)
		if err != nil {
			return Outcome{}, err
		}
		return Done(value.ObjectOf("path", path, "bytes", float64(n))), nil
	}
}

func (b *builtins) listFiles(ctx context.Context, c *Call) (Outcome, error) {
	params, err := c.Native()
	if err != nil {
		return Outcome{}, err
	}
	path, _ := params["path"].(string)
	if path == "" {
		path = "."
	}
	p, err := b.resolve(path)
	if err != nil {
		return Outcome{}, err
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return Outcome{}, err
	}
	names := value.NewArray()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names.Items = append(names.Items, name)
	}
	return Done(names), nil
}

func (b *builtins) execCommand(ctx context.Context, c *Call) (Outcome, error) {
	params, err := c.Native()
	if err != nil {
		return Outcome{}, err
	}
	command, _ := params["command"].(string)

	workdir := b.sandbox
	if workdir == "" {
		if workdir, err = os.Getwd(); err != nil {
			return Outcome{}, err
		}
	}
	if sub, ok := params["workdir"].(string); ok && sub != "" {
		if workdir, err = b.resolve(sub); err != nil {
			return Outcome{}, err
		}
	}
	if err := os.MkdirAll(workdir, 0755); err != nil {
		return Outcome{}, fmt.Errorf("cannot create workdir %s: %w", workdir, err)
	}

	timeout := 60 * time.Second
	if ts, ok := params["timeout_seconds"].(float64); ok && ts > 0 {
		timeout = time.Duration(ts * float64(time.Second))
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if b.sandbox != "" {
		command = rewriteCommandPaths(command, b.sandbox)
	}
	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = workdir
	if b.sandbox != "" {
		cmd.Env = sandboxEnv(b.sandbox)
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err = cmd.Run()
	output := buf.String()
	if len(output) > 8000 {
		output = output[:8000] + "\n... (truncated)"
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("command failed: %w\n%s", err, output)
	}
	return Done(output), nil
}
