package bot

// =============================================================================
// General messages
// =============================================================================

const (
	MsgUnexpectedErr = `Error inesperado: %s`
	MsgVersionInfo   = "Versión: %s\nCompilado: %s"
	MsgReset         = "Sesión reiniciada. Envía una imagen para empezar."
	MsgStart         = `
		¡Hola! Envíame una imagen (JPG, PNG o WebP, máximo 5MB) y te ayudo a:

		🔍 /analizar: generar un prompt descriptivo
		✨ /mejorar: enriquecer el prompt actual
		✏️ /editar: editar la imagen con una instrucción
		🪄 /magia: aplicar una edición predefinida
		🧍 /pose: añadir una sugerencia de pose a la instrucción
		🧪 /inspeccionar: ver la respuesta completa de la API
	`
	MsgSendImageFirst = "Por favor, selecciona una imagen primero."
	MsgUnknownCommand = "No conozco ese comando. Usa /start para ver la ayuda."
)

// =============================================================================
// Image messages
// =============================================================================

const (
	MsgImageReceived    = "Imagen recibida (%s, %s). ¿Qué quieres hacer?"
	MsgDownloadFailed   = "No se pudo descargar la imagen. Inténtalo de nuevo."
	MsgNotAnImage       = "Ese archivo no es una imagen."
	MsgEditedImageSaved = "Ahora trabajamos sobre la imagen editada."
	MsgNoEditedImage    = "Todavía no hay ninguna imagen editada."
)

// =============================================================================
// Action messages
// =============================================================================

const (
	MsgActionInProgress  = "Esa acción ya está en curso. Espera a que termine."
	MsgAnalyzing         = "Analizando imagen..."
	MsgEditing           = "Editando imagen..."
	MsgImproving         = "Mejorando prompt..."
	MsgInspecting        = "Enviando petición..."
	MsgPromptResult      = "📝 Prompt generado:"
	MsgImprovedResult    = "✨ Prompt mejorado:"
	MsgEditCaption       = "Imagen editada: %s"
	MsgEditCaptionText   = "Imagen editada: %s\n\n%s"
	MsgNoPrompt          = "Todavía no hay prompt. Usa /analizar o escribe /mejorar <texto>."
	MsgNoInstruction     = "Escribe qué quieres cambiar, por ejemplo: /editar convierte el cielo en un atardecer"
	MsgInstructionSaved  = "Instrucción guardada:\n%s"
	MsgInstructionUsage  = "Uso: /instruccion <texto>"
	MsgInspectUsage      = "Uso: /inspeccionar <prompt>"
	MsgNoInspectPrompt   = "Primero usa /inspeccionar <prompt>."
	MsgStreamResult      = "📡 Respuesta en streaming:\n\n%s"
	MsgInspectCurlHeader = "Petición equivalente:"
	MsgInspectResponse   = "Respuesta completa:"
)

// =============================================================================
// Magic edits and poses
// =============================================================================

const (
	MsgChooseMagicEdit  = "Elige una edición mágica:"
	MsgChoosePose       = "Elige una pose para añadir a la instrucción:"
	MsgUnknownMagicEdit = "Edición mágica desconocida."
	MsgUnknownPose      = "Pose desconocida."
	MsgNoMagicEdits     = "No hay ediciones mágicas configuradas."
)

// =============================================================================
// Buttons
// =============================================================================

const (
	BtnAnalyze   = "🔍 Analizar"
	BtnEdit      = "✏️ Editar"
	BtnMagic     = "🪄 Magia"
	BtnImprove   = "✨ Mejorar"
	BtnPose      = "🧍 Pose"
	BtnUseEdited = "🔁 Usar como imagen actual"
	BtnDownload  = "💾 Descargar"
	BtnStream    = "📡 Repetir en streaming"
)
