package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-prompt-bot/internal/magic"
)

func imageKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnAnalyze, "act:analyze"),
			tgbotapi.NewInlineKeyboardButtonData(BtnEdit, "act:edit"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnMagic, "act:magic"),
			tgbotapi.NewInlineKeyboardButtonData(BtnPose, "act:pose"),
		),
	)
}

func promptKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnImprove, "act:improve"),
			tgbotapi.NewInlineKeyboardButtonData(BtnMagic, "act:magic"),
		),
	)
}

func instructionKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnEdit, "act:edit"),
			tgbotapi.NewInlineKeyboardButtonData(BtnPose, "act:pose"),
		),
	)
}

func editResultKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnUseEdited, "act:use_edited"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnDownload, "act:download"),
		),
	)
}

func inspectKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnStream, "act:stream"),
		),
	)
}

// magicKeyboard lays out the presets two per row.
func magicKeyboard(edits []magic.Edit) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, e := range edits {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(e.Name, "magic:"+e.ID))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func poseKeyboard(poses []magic.Pose) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range poses {
		label := p.Name
		if label == "" {
			label = truncate(p.Text, 40)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "pose:"+p.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
