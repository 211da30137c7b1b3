package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// CurlExample renders the raw request for prompt as a copy-pasteable curl
// command. The API key is left as an environment variable reference.
func CurlExample(baseURL, model, prompt string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	body, _ := json.Marshal(newTextRequest(prompt))
	quoted := "'" + strings.ReplaceAll(string(body), "'", `'\''`) + "'"

	var b strings.Builder
	fmt.Fprintf(&b, "curl \"%s/%s/models/%s:generateContent\" \\\n", strings.TrimRight(baseURL, "/"), APIVersion, model)
	b.WriteString("  -H \"x-goog-api-key: $GEMINI_API_KEY\" \\\n")
	b.WriteString("  -H \"Content-Type: application/json\" \\\n")
	b.WriteString("  -X POST \\\n")
	b.WriteString("  -d " + quoted)
	return b.String()
}

// PrettyJSON indents raw for display. Invalid JSON is returned unchanged.
func PrettyJSON(raw []byte) string {
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}
