package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/raine/telegram-prompt-bot/internal/imagefile"
	"github.com/raine/telegram-prompt-bot/internal/llm"
	"github.com/raine/telegram-prompt-bot/internal/magic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	img         *imagefile.Image
	instruction string
	prompt      string

	text string
	edit *llm.EditResult
	raw  json.RawMessage
	err  error
}

func (s *stubClient) Analyze(ctx context.Context, img *imagefile.Image) (string, error) {
	s.img = img
	return s.text, s.err
}

func (s *stubClient) Edit(ctx context.Context, img *imagefile.Image, instruction string) (*llm.EditResult, error) {
	s.img = img
	s.instruction = instruction
	return s.edit, s.err
}

func (s *stubClient) Improve(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.text, s.err
}

func (s *stubClient) RawRequest(ctx context.Context, prompt string) (json.RawMessage, error) {
	s.prompt = prompt
	return s.raw, s.err
}

func (s *stubClient) StreamText(ctx context.Context, prompt string, img *imagefile.Image) (string, error) {
	s.prompt = prompt
	s.img = img
	return s.text, s.err
}

// run executes promptctl with args against client and returns stdout.
func run(t *testing.T, client llm.Client, args ...string) (string, error) {
	t.Helper()

	origClient, origCatalog := newClient, loadCatalog
	t.Cleanup(func() {
		newClient, loadCatalog = origClient, origCatalog
		verbose = false
		editOutput, editMagic, editPose = "", "", ""
		rawStream, rawCurl, rawImage = false, false, ""
	})
	newClient = func(ctx context.Context) (llm.Client, error) { return client, nil }
	loadCatalog = func() (*magic.Catalog, error) { return magic.Default(), nil }

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// writePNG writes a file that sniffs as PNG.
func writePNG(t *testing.T) string {
	t.Helper()
	data := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestAnalyze(t *testing.T) {
	client := &stubClient{text: "a red bicycle"}
	path := writePNG(t)

	out, err := run(t, client, "analyze", path)
	require.NoError(t, err)

	assert.Equal(t, "a red bicycle\n", out)
	require.NotNil(t, client.img)
	assert.Equal(t, "image/png", client.img.MIMEType)
	assert.Equal(t, "photo.png", client.img.Name)
}

func TestAnalyze_UnsupportedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("just text"), 0644))

	_, err := run(t, &stubClient{}, "analyze", path)
	assert.ErrorIs(t, err, imagefile.ErrUnsupportedFormat)
}

func TestEdit_WritesOutput(t *testing.T) {
	client := &stubClient{edit: &llm.EditResult{Image: []byte("jpeg-out"), MIMEType: "image/jpeg", Text: "hecho"}}
	path := writePNG(t)

	out, err := run(t, client, "edit", path, "convierte", "el", "cielo", "en", "un", "atardecer")
	require.NoError(t, err)

	assert.Equal(t, "convierte el cielo en un atardecer", client.instruction)
	expected := filepath.Join(filepath.Dir(path), "photo-edit.jpg")
	data, err := os.ReadFile(expected)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-out"), data)
	assert.Contains(t, out, "hecho")
	assert.Contains(t, out, expected)
}

func TestEdit_MagicAndPose(t *testing.T) {
	client := &stubClient{edit: &llm.EditResult{Image: []byte("x"), MIMEType: "image/png"}}
	path := writePNG(t)
	output := filepath.Join(t.TempDir(), "out.png")

	_, err := run(t, client, "edit", path, "--magic", "neon", "--pose", "sitting", "-o", output)
	require.NoError(t, err)

	catalog := magic.Default()
	preset, _ := catalog.Edit("neon")
	pose, _ := catalog.Pose("sitting")
	assert.Equal(t, preset.Prompt+" "+pose.Text, client.instruction)
	assert.FileExists(t, output)
}

func TestEdit_UnknownMagic(t *testing.T) {
	_, err := run(t, &stubClient{}, "edit", writePNG(t), "--magic", "nope")
	assert.ErrorContains(t, err, `unknown magic edit "nope"`)
}

func TestEdit_FailureIsReturned(t *testing.T) {
	failure := &llm.Failure{Op: llm.OpEdit, Kind: llm.KindNoImage, Message: llm.MsgNoImage}

	_, err := run(t, &stubClient{err: failure}, "edit", writePNG(t), "algo")
	assert.ErrorIs(t, err, llm.ErrNoImage)
}

func TestImprove(t *testing.T) {
	client := &stubClient{text: "a fluffy cat at dusk"}

	out, err := run(t, client, "improve", "a", "cat")
	require.NoError(t, err)

	assert.Equal(t, "a cat", client.prompt)
	assert.Equal(t, "a fluffy cat at dusk\n", out)
}

func TestRaw_PrettyPrints(t *testing.T) {
	client := &stubClient{raw: json.RawMessage(`{"candidates":[]}`)}

	out, err := run(t, client, "raw", "hola")
	require.NoError(t, err)

	assert.Equal(t, "{\n  \"candidates\": []\n}\n", out)
}

func TestRaw_StreamWithImage(t *testing.T) {
	client := &stubClient{text: "Hola, mundo"}
	path := writePNG(t)

	out, err := run(t, client, "raw", "hola", "--stream", "--image", path)
	require.NoError(t, err)

	assert.Equal(t, "Hola, mundo\n", out)
	require.NotNil(t, client.img)
	assert.Equal(t, "image/png", client.img.MIMEType)
}

func TestRaw_Curl(t *testing.T) {
	t.Setenv("GEMINI_BASE_URL", "")
	t.Setenv("GEMINI_TEXT_MODEL", "")
	client := &stubClient{}

	out, err := run(t, client, "raw", "hola", "--curl")
	require.NoError(t, err)

	assert.Contains(t, out, "models/"+llm.DefaultTextModel+":generateContent")
	assert.Contains(t, out, "$GEMINI_API_KEY")
	assert.Empty(t, client.prompt, "nothing is sent")
}

func TestMagic_Lists(t *testing.T) {
	out, err := run(t, &stubClient{}, "magic")
	require.NoError(t, err)

	assert.Contains(t, out, "cinematic")
	assert.Contains(t, out, "Acuarela")
	assert.Contains(t, out, "Haz que el sujeto esté caminando")
}

func TestDefaultEditPath(t *testing.T) {
	assert.Equal(t, "dir/photo-edit.png", defaultEditPath("dir/photo.jpg", "image/png"))
	assert.Equal(t, "photo-edit.jpg", defaultEditPath("photo.png", "image/jpeg"))
	assert.Equal(t, "photo-edit.webp", defaultEditPath("photo", "image/webp"))
}
