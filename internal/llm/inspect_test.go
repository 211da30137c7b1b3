package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurlExample(t *testing.T) {
	got := CurlExample("", "gemini-2.5-flash", "it's a test")

	assert.Contains(t, got, `curl "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent"`)
	assert.Contains(t, got, `-H "x-goog-api-key: $GEMINI_API_KEY"`)
	assert.Contains(t, got, `"text":"it'\''s a test"`)
	assert.NotContains(t, got, "AIza")
}

func TestCurlExample_CustomBaseURL(t *testing.T) {
	got := CurlExample("http://localhost:9000/", "m", "hola")
	assert.Contains(t, got, `curl "http://localhost:9000/v1beta/models/m:generateContent"`)
}

func TestPrettyJSON(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1\n}", PrettyJSON([]byte(`{"a":1}`)))
	assert.Equal(t, "not json", PrettyJSON([]byte("not json")))
}
