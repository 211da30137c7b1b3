package llm

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStreamText_SSE(t *testing.T) {
	body := strings.Join([]string{
		`data: {"candidates":[{"content":{"parts":[{"text":"Un "}]}}]}`,
		``,
		`: keep-alive`,
		`data: {"candidates":[{"content":{"parts":[{"text":"gato"},{"text":" negro"}]}}]}`,
		``,
		`data: [DONE]`,
	}, "\n")

	text, err := ParseStreamText(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "Un gato negro", text)
}

func TestParseStreamText_JSONArray(t *testing.T) {
	body := `[{"candidates":[{"content":{"parts":[{"text":"a"}]}}]},
{"candidates":[{"content":{"parts":[{"text":"b"}]}}]},
{"candidates":[{"finishReason":"STOP"}]}]`

	text, err := ParseStreamText(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "ab", text)
}

func TestParseStreamText_ConcatenatedObjects(t *testing.T) {
	body := `{"candidates":[{"content":{"parts":[{"text":"uno "}]}}]}
{"candidates":[{"content":{"parts":[{"text":"dos"}]}}]}`

	text, err := ParseStreamText(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "uno dos", text)
}

func TestParseStreamText_Empty(t *testing.T) {
	text, err := ParseStreamText(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestParseStreamText_ErrorChunk(t *testing.T) {
	body := `data: {"candidates":[{"content":{"parts":[{"text":"parcial"}]}}]}

data: {"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}
`
	_, err := ParseStreamText(strings.NewReader(body))
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 429, statusErr.StatusCode)
	assert.Equal(t, KindQuotaExceeded, Normalize(OpInspect, err).Kind)
}

func TestParseStreamText_MalformedChunk(t *testing.T) {
	_, err := ParseStreamText(strings.NewReader("data: {not json}\n"))
	assert.Error(t, err)
}
