package classify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pvolkov/tome/internal/types"
)

// verdictSchema is the shape ParseVerdict accepts. Unknown extra fields are
// tolerated; known fields must carry the right JSON type.
const verdictSchema = `{
	"type": "object",
	"properties": {
		"is_start": {"type": "boolean"},
		"is_end": {"type": "boolean"},
		"is_inventory_page": {"type": "boolean"},
		"document_type": {"type": "string"},
		"title": {"type": "string"},
		"date": {"type": "string"}
	}
}`

var compiledVerdictSchema = mustCompileSchema(verdictSchema)

func mustCompileSchema(src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("verdict.json", bytes.NewReader([]byte(src))); err != nil {
		panic(err)
	}
	return compiler.MustCompile("verdict.json")
}

// ParseVerdict extracts a PageVerdict from a raw model reply. The model is
// an untrusted text producer: replies may be wrapped in markdown fences or
// surrounded by commentary. The parser is pure; the fallback-to-default
// recovery policy lives at the call site.
func ParseVerdict(raw string) (types.PageVerdict, error) {
	candidate, err := extractJSONObject(raw)
	if err != nil {
		return types.PageVerdict{}, err
	}

	var doc any
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return types.PageVerdict{}, fmt.Errorf("invalid verdict JSON: %w", err)
	}
	if err := compiledVerdictSchema.Validate(doc); err != nil {
		return types.PageVerdict{}, fmt.Errorf("verdict does not match schema: %w", err)
	}

	var v types.PageVerdict
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return types.PageVerdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	return v, nil
}

// extractJSONObject finds the first balanced JSON object in a raw reply,
// stripping code-fence markers and surrounding commentary. Balance matters:
// trailing commentary may itself contain braces.
func extractJSONObject(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", fmt.Errorf("empty reply")
	}

	if stripped := stripCodeFences(content); stripped != "" {
		content = stripped
	}

	start := strings.Index(content, "{")
	if start < 0 {
		return "", fmt.Errorf("no JSON object in reply")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON object in reply")
}

// stripCodeFences removes a surrounding markdown code fence, if any.
// Returns "" when the content is not fenced.
func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop the opening fence line and a trailing fence if present.
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
