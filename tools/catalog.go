package tools

import (
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/jonwraymond/toolfoundation/model"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Catalog describes every registered tool in MCP form, for collaborators
// that build prompts or expose the runtime over MCP. Namespace is the dotted
// prefix of the tool path and Name its last segment.
func (r *Runtime) Catalog() []model.Tool {
	var out []model.Tool
	r.Walk(func(t *Tool) {
		ns, name := splitName(t.Name)

		input := t.Input
		if input == nil {
			input = &jsonschema.Schema{Type: "object"}
		}
		mt := mcp.Tool{
			Name:        name,
			Title:       t.Title,
			Description: t.Description,
			InputSchema: input,
		}
		if t.Output != nil {
			mt.OutputSchema = t.Output
		}

		tags := append([]string(nil), t.Tags...)
		if t.AcceptsEvents() {
			tags = append(tags, "awaits-events")
		}
		if t.Stateful() {
			tags = append(tags, "stateful")
		}
		out = append(out, model.Tool{
			Tool:      mt,
			Namespace: ns,
			Tags:      model.NormalizeTags(tags),
		})
	})
	return out
}

func splitName(path string) (ns, name string) {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// Suggest returns the candidate closest to target, for "did you mean"
// hints. It reports false when nothing is close.
func Suggest(target string, candidates []string) (string, bool) {
	if target == "" || len(candidates) == 0 {
		return "", false
	}
	ranks := fuzzy.RankFindNormalizedFold(target, candidates)
	if len(ranks) == 0 {
		// Fall back to candidates contained in target, so "searchh"
		// still finds "search".
		for _, c := range candidates {
			if fuzzy.MatchNormalizedFold(c, target) {
				ranks = append(ranks, fuzzy.Rank{Source: c, Target: c, Distance: len(target) - len(c)})
			}
		}
	}
	if len(ranks) == 0 {
		return "", false
	}
	sort.Sort(ranks)
	return ranks[0].Target, true
}

// Suggest returns the closest registered tool path to path.
func (r *Runtime) Suggest(path string) (string, bool) {
	return Suggest(path, r.Names())
}
