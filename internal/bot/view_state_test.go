package bot

import (
	"errors"
	"testing"

	"github.com/raine/telegram-prompt-bot/internal/imagefile"
	"github.com/raine/telegram-prompt-bot/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewState_SelectImageClearsDerivedState(t *testing.T) {
	v := NewViewState()
	v.SelectImage(testImage(), nil)
	v.Prompt = "a red bicycle"
	v.EditedImage = &llm.EditResult{Image: []byte("x")}
	v.Instruction = "make it blue"

	next := &imagefile.Image{Data: []byte("png"), MIMEType: "image/png", Size: 3}
	v.SelectImage(next, nil)

	assert.Equal(t, next, v.Image)
	assert.Empty(t, v.Prompt)
	assert.Nil(t, v.EditedImage)
	assert.Empty(t, v.LastError)
	assert.Equal(t, "make it blue", v.Instruction, "instruction survives a new image")
}

func TestViewState_RejectedImageClearsPrevious(t *testing.T) {
	v := NewViewState()
	v.SelectImage(testImage(), nil)

	v.SelectImage(nil, imagefile.ErrTooLarge)

	assert.Nil(t, v.Image)
	assert.Equal(t, imagefile.MsgTooLarge, v.LastError)
}

func TestViewState_BeginIsPerAction(t *testing.T) {
	v := NewViewState()

	first, ok := v.Begin(ActionAnalyze, "a1")
	require.True(t, ok)
	_, ok = v.Begin(ActionAnalyze, "a2")
	assert.False(t, ok, "same action cannot run twice")

	_, ok = v.Begin(ActionEdit, "e1")
	assert.True(t, ok, "other actions are independent")

	assert.True(t, v.Finish(first))
	assert.False(t, v.Busy(ActionAnalyze))
	assert.True(t, v.Busy(ActionEdit))
}

func TestViewState_BeginClearsLastError(t *testing.T) {
	v := NewViewState()
	v.Fail(errors.New("boom"))
	assert.Equal(t, "boom", v.LastError)

	_, ok := v.Begin(ActionImprove, "i1")
	require.True(t, ok)
	assert.Empty(t, v.LastError)
}

func TestViewState_StaleTickets(t *testing.T) {
	tests := []struct {
		name   string
		change func(v *ViewState)
	}{
		{"new image", func(v *ViewState) { v.SelectImage(testImage(), nil) }},
		{"rejected image", func(v *ViewState) { v.SelectImage(nil, imagefile.ErrUnsupportedFormat) }},
		{"reset", func(v *ViewState) { v.Reset() }},
		{"use edited", func(v *ViewState) {
			v.EditedImage = &llm.EditResult{Image: []byte("x"), MIMEType: "image/png"}
			v.UseEditedImage()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViewState()
			v.SelectImage(testImage(), nil)
			ticket, ok := v.Begin(ActionAnalyze, "a1")
			require.True(t, ok)

			tt.change(v)

			assert.False(t, v.Finish(ticket))
			assert.False(t, v.Busy(ActionAnalyze))
			_, ok = v.Begin(ActionAnalyze, "a2")
			assert.True(t, ok, "action can be started again after the change")
		})
	}
}

func TestViewState_UseEditedImage(t *testing.T) {
	v := NewViewState()
	assert.False(t, v.UseEditedImage())

	v.SelectImage(testImage(), nil)
	v.Prompt = "keep"
	v.EditedImage = &llm.EditResult{Image: []byte("edited"), MIMEType: "image/webp"}
	require.True(t, v.UseEditedImage())

	assert.Equal(t, []byte("edited"), v.Image.Data)
	assert.Equal(t, "image/webp", v.Image.MIMEType)
	assert.Equal(t, int64(6), v.Image.Size)
	assert.Equal(t, "keep", v.Prompt)
	assert.Nil(t, v.EditedImage)
}

func TestViewState_Reset(t *testing.T) {
	v := NewViewState()
	v.SelectImage(testImage(), nil)
	v.Prompt = "p"
	v.Instruction = "i"
	v.LastInspect = "hola"

	v.Reset()

	assert.Nil(t, v.Image)
	assert.Empty(t, v.Prompt)
	assert.Empty(t, v.Instruction)
	assert.Empty(t, v.LastInspect)
	_, ok := v.Begin(ActionAnalyze, "a1")
	assert.True(t, ok)
}
