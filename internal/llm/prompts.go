package llm

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultPersonPlaceholder replaces any description of a depicted person.
const DefaultPersonPlaceholder = "la imagen que te acabo de subir"

const analysisPrompt = `Generate a detailed prompt for an image generator from what you see in this image.

Your answer must be written in %s. Be very descriptive: capture the atmosphere, the objects, the colors and the style.
Start directly with the description; do not include any introductory sentence.

Important: if a person appears in the image, do not describe their physical features. Instead, to refer to the person, use only the exact phrase '%s'.`

const editPrompt = `Apply the following edit to the image I have provided. It is very important that you keep the style and the overall composition of the original image, changing only what I ask for below. Do not change the subject, the background or the lighting unless the instruction is specifically about that. The edit is: "%s"`

const improvePrompt = `Rewrite the following image generation prompt into a richer, more detailed and more evocative version.

Rules:
- Keep the same language as the original prompt
- Keep every element of the original; add detail about atmosphere, lighting, materials, colors and composition
- Respond ONLY with the improved prompt: no introduction, no explanation, no quotes, no headings

Original prompt:
%s`

// Prompts builds the fixed instructions sent with each operation.
type Prompts struct {
	Language          language.Tag
	PersonPlaceholder string
}

// DefaultPrompts targets Spanish, like the rest of the user interface.
func DefaultPrompts() Prompts {
	return Prompts{Language: language.Spanish, PersonPlaceholder: DefaultPersonPlaceholder}
}

// NewPrompts parses a BCP 47 language tag. An empty tag or placeholder keeps the default.
func NewPrompts(lang, placeholder string) (Prompts, error) {
	p := DefaultPrompts()
	if lang = strings.TrimSpace(lang); lang != "" {
		tag, err := language.Parse(lang)
		if err != nil {
			return p, fmt.Errorf("invalid prompt language %q: %w", lang, err)
		}
		p.Language = tag
	}
	if placeholder = strings.TrimSpace(placeholder); placeholder != "" {
		p.PersonPlaceholder = placeholder
	}
	return p, nil
}

// LanguageName returns the English name of the target language, e.g. "Spanish".
func (p Prompts) LanguageName() string {
	if name := display.English.Tags().Name(p.Language); name != "" {
		return name
	}
	return p.Language.String()
}

// Analysis returns the instruction sent alongside the image for analysis.
func (p Prompts) Analysis() string {
	return fmt.Sprintf(analysisPrompt, p.LanguageName(), p.PersonPlaceholder)
}

// Edit wraps a user instruction in the preservation template.
func (p Prompts) Edit(instruction string) string {
	return fmt.Sprintf(editPrompt, instruction)
}

// Improve wraps an existing prompt in the rewrite meta-instruction.
func (p Prompts) Improve(prompt string) string {
	return fmt.Sprintf(improvePrompt, prompt)
}
