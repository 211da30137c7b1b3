package bot

import (
	"github.com/raine/telegram-prompt-bot/internal/imagefile"
	"github.com/raine/telegram-prompt-bot/internal/llm"
)

// Action is a user-triggered remote operation.
type Action string

const (
	ActionAnalyze Action = "analyze"
	ActionEdit    Action = "edit"
	ActionImprove Action = "improve"
	ActionInspect Action = "inspect"
)

// ActionTicket identifies one started action. Results carrying a ticket from
// an older generation are stale and discarded.
type ActionTicket struct {
	Action     Action
	ID         string
	Generation int
}

// ViewState is the transient state of one chat. It is only touched from the
// session worker, so it needs no locking.
type ViewState struct {
	Image       *imagefile.Image
	Prompt      string
	Instruction string
	EditedImage *llm.EditResult
	LastError   string
	LastInspect string

	busy       map[Action]string
	generation int
}

func NewViewState() *ViewState {
	return &ViewState{busy: make(map[Action]string)}
}

// SelectImage replaces the current image. A validation error clears any
// previously accepted image and every result derived from it.
func (v *ViewState) SelectImage(img *imagefile.Image, err error) {
	v.generation++
	v.busy = make(map[Action]string)
	v.Image = nil
	v.Prompt = ""
	v.EditedImage = nil
	v.LastError = ""
	if err != nil {
		v.LastError = imagefile.UserMessage(err)
		return
	}
	v.Image = img
}

// UseEditedImage promotes the last edit result to the current image. The
// prompt and instruction are kept.
func (v *ViewState) UseEditedImage() bool {
	if v.EditedImage == nil || len(v.EditedImage.Image) == 0 {
		return false
	}
	v.generation++
	v.busy = make(map[Action]string)
	v.Image = &imagefile.Image{
		Data:     v.EditedImage.Image,
		MIMEType: v.EditedImage.MIMEType,
		Size:     int64(len(v.EditedImage.Image)),
		Name:     "edit",
	}
	v.EditedImage = nil
	return true
}

// Reset returns the chat to its initial state.
func (v *ViewState) Reset() {
	gen := v.generation + 1
	*v = *NewViewState()
	v.generation = gen
}

// Busy reports whether action is in flight.
func (v *ViewState) Busy(action Action) bool {
	_, ok := v.busy[action]
	return ok
}

// Begin marks action as in flight. It returns false if the same action is
// already running; other actions are not affected.
func (v *ViewState) Begin(action Action, id string) (ActionTicket, bool) {
	if v.Busy(action) {
		return ActionTicket{}, false
	}
	v.busy[action] = id
	v.LastError = ""
	return ActionTicket{Action: action, ID: id, Generation: v.generation}, true
}

// Finish clears the busy flag for ticket. It returns false when the ticket
// belongs to an earlier generation and its result must be dropped.
func (v *ViewState) Finish(ticket ActionTicket) bool {
	if ticket.Generation != v.generation {
		return false
	}
	if v.busy[ticket.Action] == ticket.ID {
		delete(v.busy, ticket.Action)
	}
	return true
}

// Fail records a failure message for display.
func (v *ViewState) Fail(err error) {
	v.LastError = err.Error()
}
