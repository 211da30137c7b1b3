package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Command defines a bot command with its Telegram menu description.
type Command struct {
	Name        string // Command name without slash (e.g., "start")
	Description string // Description shown in Telegram command menu
}

// botCommands defines all available bot commands.
// This is the single source of truth for command definitions.
var botCommands = []Command{
	{Name: "analizar", Description: "Generar un prompt a partir de la imagen"},
	{Name: "mejorar", Description: "Mejorar el prompt actual o un texto"},
	{Name: "editar", Description: "Editar la imagen con una instrucción"},
	{Name: "instruccion", Description: "Guardar la instrucción de edición"},
	{Name: "magia", Description: "Aplicar una edición mágica"},
	{Name: "pose", Description: "Añadir una sugerencia de pose"},
	{Name: "inspeccionar", Description: "Ver la respuesta completa de la API"},
	{Name: "reiniciar", Description: "Empezar de cero"},
	{Name: "version", Description: "Mostrar la versión"},
}

// RegisterCommands sets the bot's command menu in Telegram.
// This should be called once at startup.
func RegisterCommands(tg BotAPI) {
	commands := make([]tgbotapi.BotCommand, len(botCommands))
	for i, cmd := range botCommands {
		commands[i] = tgbotapi.BotCommand{
			Command:     cmd.Name,
			Description: cmd.Description,
		}
	}

	config := tgbotapi.NewSetMyCommands(commands...)
	if _, err := tg.Request(config); err != nil {
		log.Error().Err(err).Msg("failed to set bot commands")
	} else {
		log.Info().Int("count", len(commands)).Msg("registered bot commands")
	}
}
