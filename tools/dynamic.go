package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/everydev1618/vegascript/value"
)

// DynamicToolDef is a YAML tool definition.
type DynamicToolDef struct {
	Name           string            `yaml:"name"`
	Description    string            `yaml:"description"`
	Tags           []string          `yaml:"tags"`
	Params         []DynamicParamDef `yaml:"params"`
	Output         any               `yaml:"output"`
	Implementation DynamicToolImpl   `yaml:"implementation"`
}

// DynamicParamDef is a YAML parameter definition.
type DynamicParamDef struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Description string   `yaml:"description"`
	Required    bool     `yaml:"required"`
	Default     any      `yaml:"default"`
	Enum        []string `yaml:"enum"`
}

// DynamicToolImpl is a YAML implementation definition.
type DynamicToolImpl struct {
	Type    string            `yaml:"type"` // http, exec, file_read, file_write, approval
	Method  string            `yaml:"method"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Query   map[string]string `yaml:"query"`
	Body    any               `yaml:"body"`
	Command string            `yaml:"command"`
	Path    string            `yaml:"path"`
	Timeout string            `yaml:"timeout"`
	// Parse is "json" to decode the response or command output, "text"
	// (the default) to return it as a string.
	Parse string `yaml:"parse"`
	// Prompt is shown to whoever resolves an approval.
	Prompt string `yaml:"prompt"`
}

// ApprovalEventSchema is the event shape approval tools wait for.
func ApprovalEventSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"approved": {Type: "boolean"},
			"comment":  {Type: "string"},
		},
		Required: []string{"approved"},
	}
}

// RegisterDynamicTool registers a tool from a DynamicToolDef. Dotted names
// place the tool in a namespace.
func (r *Runtime) RegisterDynamicTool(def DynamicToolDef) error {
	input := paramsSchema(def.Params)
	output, err := SchemaFromNative(def.Output)
	if err != nil {
		return &ToolError{ToolName: def.Name, Err: err}
	}

	t := &Tool{
		Description: def.Description,
		Tags:        def.Tags,
		Input:       input,
		Output:      output,
	}

	// Create executor based on implementation type
	var fn func(ctx context.Context, params map[string]any) (string, error)
	switch def.Implementation.Type {
	case "http":
		fn = r.createHTTPExecutor(def.Implementation)
	case "exec":
		fn = r.createExecExecutor(def.Implementation)
	case "file_read":
		fn = r.createFileReadExecutor(def.Implementation)
	case "file_write":
		fn = r.createFileWriteExecutor(def.Implementation)
	case "approval":
		t.Event = ApprovalEventSchema()
		t.Interaction = &jsonschema.Schema{Type: "string", Description: def.Implementation.Prompt}
		t.Handler = approvalHandler(def.Implementation.Prompt)
		return r.Register(def.Name, t)
	default:
		return fmt.Errorf("unknown implementation type: %s", def.Implementation.Type)
	}

	parse := def.Implementation.Parse
	t.Handler = func(ctx context.Context, call *Call) (Outcome, error) {
		params, err := call.Native()
		if err != nil {
			return Outcome{}, err
		}
		out, err := fn(ctx, params)
		if err != nil {
			return Outcome{}, err
		}
		if parse == "json" {
			v, err := value.ParseJSON(out)
			if err != nil {
				return Outcome{}, fmt.Errorf("decode output: %w", err)
			}
			return Done(v), nil
		}
		return Done(out), nil
	}
	return r.Register(def.Name, t)
}

// paramsSchema builds an object schema from YAML parameter definitions.
func paramsSchema(params []DynamicParamDef) *jsonschema.Schema {
	if len(params) == 0 {
		return nil
	}
	s := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(params)),
	}
	for _, p := range params {
		prop := &jsonschema.Schema{Type: p.Type, Description: p.Description}
		if prop.Type == "" {
			prop.Type = "string"
		}
		for _, e := range p.Enum {
			prop.Enum = append(prop.Enum, e)
		}
		if p.Default != nil {
			if data, err := json.Marshal(p.Default); err == nil {
				prop.Default = data
			}
		}
		s.Properties[p.Name] = prop
		if p.Required {
			s.Required = append(s.Required, p.Name)
		}
	}
	return s
}

// approvalHandler waits for one event and reports its decision. The
// approval request itself is echoed back so scripts can log what was
// approved.
func approvalHandler(prompt string) Handler {
	return func(ctx context.Context, call *Call) (Outcome, error) {
		pending := call.Pending()
		if len(pending) == 0 {
			return Await(), nil
		}
		ev := pending[0]
		call.MarkProcessed(ev)

		decision, ok := ev.Payload.(*value.Object)
		if !ok {
			return Outcome{}, fmt.Errorf("approval event must be an object, got %s", value.Describe(ev.Payload))
		}
		result := value.ObjectOf(
			"approved", value.Truthy(decision.Lookup("approved")),
			"comment", decision.Lookup("comment"),
			"request", call.Input,
		)
		if prompt != "" {
			result.Set("prompt", prompt)
		}
		return Done(result), nil
	}
}

// LoadDirectory loads tool definitions from YAML files.
func (r *Runtime) LoadDirectory(path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read tools directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".yaml") && !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}

		toolPath := filepath.Join(path, entry.Name())
		if err := r.LoadFile(toolPath); err != nil {
			return fmt.Errorf("load tool %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// LoadFile loads a single tool definition from YAML.
func (r *Runtime) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var def DynamicToolDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	return r.RegisterDynamicTool(def)
}

// mergeSettings returns a new params map with settings as defaults, user params taking precedence.
func (r *Runtime) mergeSettings(params map[string]any) map[string]any {
	r.mu.RLock()
	settings := r.settings
	r.mu.RUnlock()

	if len(settings) == 0 {
		return params
	}

	merged := make(map[string]any, len(settings)+len(params))
	for k, v := range settings {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v // user params take precedence
	}
	return merged
}

func parseTimeout(s string) time.Duration {
	timeout := 30 * time.Second
	if s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			timeout = d
		}
	}
	return timeout
}

// HTTP executor with template interpolation support.
func (r *Runtime) createHTTPExecutor(impl DynamicToolImpl) func(context.Context, map[string]any) (string, error) {
	return func(ctx context.Context, params map[string]any) (string, error) {
		params = r.mergeSettings(params)

		timeout := parseTimeout(impl.Timeout)
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		url, err := interpolateTemplate(impl.URL, params)
		if err != nil {
			return "", fmt.Errorf("interpolate URL: %w", err)
		}

		method := impl.Method
		if method == "" {
			method = "GET"
		}
		method = strings.ToUpper(method)

		var bodyReader io.Reader
		if impl.Body != nil {
			switch body := impl.Body.(type) {
			case string:
				interpolated, err := interpolateTemplate(body, params)
				if err != nil {
					return "", fmt.Errorf("interpolate body: %w", err)
				}
				bodyReader = strings.NewReader(interpolated)
			case map[string]any:
				interpolatedMap := make(map[string]any)
				for k, v := range body {
					if s, ok := v.(string); ok {
						interpolated, err := interpolateTemplate(s, params)
						if err != nil {
							return "", fmt.Errorf("interpolate body field %s: %w", k, err)
						}
						interpolatedMap[k] = interpolated
					} else {
						interpolatedMap[k] = v
					}
				}
				jsonBody, err := json.Marshal(interpolatedMap)
				if err != nil {
					return "", fmt.Errorf("marshal body: %w", err)
				}
				bodyReader = bytes.NewReader(jsonBody)
			default:
				jsonBody, err := json.Marshal(body)
				if err != nil {
					return "", fmt.Errorf("marshal body: %w", err)
				}
				bodyReader = bytes.NewReader(jsonBody)
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return "", fmt.Errorf("create request: %w", err)
		}

		for k, v := range impl.Headers {
			interpolated, err := interpolateTemplate(v, params)
			if err != nil {
				return "", fmt.Errorf("interpolate header %s: %w", k, err)
			}
			req.Header.Set(k, interpolated)
		}

		if bodyReader != nil && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}

		if len(impl.Query) > 0 {
			q := req.URL.Query()
			for k, v := range impl.Query {
				interpolated, err := interpolateTemplate(v, params)
				if err != nil {
					return "", fmt.Errorf("interpolate query %s: %w", k, err)
				}
				q.Set(k, interpolated)
			}
			req.URL.RawQuery = q.Encode()
		}

		client := &http.Client{Timeout: timeout}
		resp, err := client.Do(req)
		if err != nil {
			return "", fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return "", fmt.Errorf("http error %d: %s", resp.StatusCode, string(body))
		}

		return string(body), nil
	}
}

// Exec executor with template interpolation support.
func (r *Runtime) createExecExecutor(impl DynamicToolImpl) func(context.Context, map[string]any) (string, error) {
	return func(ctx context.Context, params map[string]any) (string, error) {
		params = r.mergeSettings(params)

		ctx, cancel := context.WithTimeout(ctx, parseTimeout(impl.Timeout))
		defer cancel()

		command, err := interpolateTemplate(impl.Command, params)
		if err != nil {
			return "", fmt.Errorf("interpolate command: %w", err)
		}

		cmdParts := parseCommand(command)
		if len(cmdParts) == 0 {
			return "", fmt.Errorf("empty command")
		}

		cmd := exec.CommandContext(ctx, cmdParts[0], cmdParts[1:]...)

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if workDir, ok := params["work_dir"].(string); ok && workDir != "" {
			cmd.Dir = workDir
		}

		err = cmd.Run()
		output := stdout.String()
		if stderr.Len() > 0 {
			if output != "" {
				output += "\n"
			}
			output += stderr.String()
		}

		if err != nil {
			return output, fmt.Errorf("command failed: %w", err)
		}

		return output, nil
	}
}

// interpolateTemplate replaces {{.field}} placeholders with values from params.
func interpolateTemplate(tmplStr string, params map[string]any) (string, error) {
	if !strings.Contains(tmplStr, "{{") {
		return tmplStr, nil
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// parseCommand splits a command string into parts, respecting quotes.
func parseCommand(cmd string) []string {
	var parts []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	for _, r := range cmd {
		switch {
		case r == '"' || r == '\'':
			if !inQuote {
				inQuote = true
				quoteChar = r
			} else if r == quoteChar {
				inQuote = false
				quoteChar = 0
			} else {
				current.WriteRune(r)
			}
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}

// File read executor. The path comes from the params or, when the
// definition fixes one, from its template.
func (r *Runtime) createFileReadExecutor(impl DynamicToolImpl) func(context.Context, map[string]any) (string, error) {
	return func(ctx context.Context, params map[string]any) (string, error) {
		path, err := resolvePath(impl, params)
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

// File write executor
func (r *Runtime) createFileWriteExecutor(impl DynamicToolImpl) func(context.Context, map[string]any) (string, error) {
	return func(ctx context.Context, params map[string]any) (string, error) {
		path, err := resolvePath(impl, params)
		if err != nil {
			return "", err
		}
		content, ok := params["content"].(string)
		if !ok {
			return "", fmt.Errorf("content parameter required")
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return "", err
		}
		return "File written successfully", nil
	}
}

func resolvePath(impl DynamicToolImpl, params map[string]any) (string, error) {
	if impl.Path != "" {
		return interpolateTemplate(impl.Path, params)
	}
	path, ok := params["path"].(string)
	if !ok {
		return "", fmt.Errorf("path parameter required")
	}
	return path, nil
}
