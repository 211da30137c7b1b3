package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/raine/telegram-prompt-bot/internal/config"
	"github.com/raine/telegram-prompt-bot/internal/imagefile"
	"github.com/raine/telegram-prompt-bot/internal/llm"
	"github.com/raine/telegram-prompt-bot/internal/magic"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	editOutput string
	editMagic  string
	editPose   string
	rawStream  bool
	rawCurl    bool
	rawImage   string
)

// newClient builds the generation client. Replaced in tests.
var newClient = func(ctx context.Context) (llm.Client, error) {
	cfg := config.LoadGemini()
	opts, err := cfg.GeminiOptions()
	if err != nil {
		return nil, err
	}
	return llm.NewGeminiService(ctx, opts)
}

// loadCatalog reads MAGIC_EDITS_FILE or falls back to the embedded presets.
var loadCatalog = func() (*magic.Catalog, error) {
	return magic.Load(config.LoadGemini().MagicEditsFile)
}

var rootCmd = &cobra.Command{
	Use:           "promptctl",
	Short:         "Generate, improve and apply image prompts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadEnvFile()
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level)
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Describe an image as a generation prompt",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

var editCmd = &cobra.Command{
	Use:   "edit <image> [instruction]",
	Short: "Edit an image following an instruction",
	Long: `Edit an image following a free-text instruction or a magic edit preset.

Examples:
  promptctl edit photo.jpg "convierte el cielo en un atardecer"
  promptctl edit photo.jpg --magic watercolor -o acuarela.png
  promptctl edit photo.jpg "pon un fondo de playa" --pose sitting`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEdit,
}

var improveCmd = &cobra.Command{
	Use:   "improve <prompt>",
	Short: "Rewrite a prompt into a richer version",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImprove,
}

var rawCmd = &cobra.Command{
	Use:   "raw <prompt>",
	Short: "Send a minimal request and print the complete response",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRaw,
}

var magicCmd = &cobra.Command{
	Use:   "magic",
	Short: "List magic edit presets and poses",
	Args:  cobra.NoArgs,
	RunE:  runMagic,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests, token usage and cost")

	editCmd.Flags().StringVarP(&editOutput, "output", "o", "", "Output file (default: <image>-edit.<ext>)")
	editCmd.Flags().StringVar(&editMagic, "magic", "", "Magic edit preset id")
	editCmd.Flags().StringVar(&editPose, "pose", "", "Pose id to merge into the instruction")

	rawCmd.Flags().BoolVar(&rawStream, "stream", false, "Use the streaming endpoint and print only the text")
	rawCmd.Flags().BoolVar(&rawCurl, "curl", false, "Print the equivalent curl command instead of sending")
	rawCmd.Flags().StringVar(&rawImage, "image", "", "Image to attach to a streaming request")

	rootCmd.AddCommand(analyzeCmd, editCmd, improveCmd, rawCmd, magicCmd)
}

// Execute runs the root command and reports any error on stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

func readImage(path string) (*imagefile.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	img, err := imagefile.New(data, imagefile.DetectMIME(data), filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	img, err := readImage(args[0])
	if err != nil {
		return err
	}
	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}
	prompt, err := client.Analyze(cmd.Context(), img)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), prompt)
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	img, err := readImage(args[0])
	if err != nil {
		return err
	}
	instruction := strings.Join(args[1:], " ")

	if editMagic != "" || editPose != "" {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		if editMagic != "" {
			preset, ok := catalog.Edit(editMagic)
			if !ok {
				return fmt.Errorf("unknown magic edit %q", editMagic)
			}
			instruction = preset.Prompt
		}
		if editPose != "" {
			pose, ok := catalog.Pose(editPose)
			if !ok {
				return fmt.Errorf("unknown pose %q", editPose)
			}
			instruction = catalog.ApplyPose(instruction, pose)
		}
	}

	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}
	result, err := client.Edit(cmd.Context(), img, instruction)
	if err != nil {
		return err
	}

	out := editOutput
	if out == "" {
		out = defaultEditPath(args[0], result.MIMEType)
	}
	if err := os.WriteFile(out, result.Image, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if result.Text != "" {
		fmt.Fprintln(cmd.OutOrStdout(), result.Text)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Edited image written to %s\n", out)
	return nil
}

// defaultEditPath puts the edit next to the source with an extension
// matching what the model returned.
func defaultEditPath(src, mimeType string) string {
	ext := ".png"
	switch mimeType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/webp":
		ext = ".webp"
	}
	base := strings.TrimSuffix(src, filepath.Ext(src))
	return base + "-edit" + ext
}

func runImprove(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}
	prompt, err := client.Improve(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), prompt)
	return nil
}

func runRaw(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")

	if rawCurl {
		cfg := config.LoadGemini()
		model := cfg.TextModel
		if model == "" {
			model = llm.DefaultTextModel
		}
		fmt.Fprintln(cmd.OutOrStdout(), llm.CurlExample(cfg.GeminiBaseURL, model, prompt))
		return nil
	}

	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	if rawStream {
		var img *imagefile.Image
		if rawImage != "" {
			if img, err = readImage(rawImage); err != nil {
				return err
			}
		}
		text, err := client.StreamText(cmd.Context(), prompt, img)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	}

	raw, err := client.RawRequest(cmd.Context(), prompt)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), llm.PrettyJSON(raw))
	return nil
}

func runMagic(cmd *cobra.Command, args []string) error {
	catalog, err := loadCatalog()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "Magic edits:")
	for _, e := range catalog.Edits {
		fmt.Fprintf(w, "  %-14s %s\n", e.ID, e.Name)
	}
	fmt.Fprintln(w, "\nPoses:")
	for _, p := range catalog.Poses {
		fmt.Fprintf(w, "  %-14s %s\n", p.ID, p.Text)
	}
	return nil
}
