package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"github.com/firstuse/dialogue/pkg/audio/pcm"
	"github.com/firstuse/dialogue/pkg/tts"
)

var sayOutput string

var sayCmd = &cobra.Command{
	Use:   "say <sentence>",
	Short: "Synthesize one example sentence",
	Long: `Synthesize a spoken rendition of a sentence and write it as raw
16-bit little-endian PCM, 24 kHz mono.

Play it with, for example:
  ffplay -f s16le -ar 24000 -ch_layout mono out.pcm`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if cfg.GeminiAPIKey == "" {
			return fmt.Errorf("gemini_api_key not configured; edit %s/config.yaml", cfg.Dir)
		}
		client, err := genai.NewClient(cmd.Context(), &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return fmt.Errorf("gemini client: %w", err)
		}

		synth := &tts.GeminiSynthesizer{Client: client, Model: cfg.TTSModel, Voice: cfg.TTSVoice}
		clip, err := synth.Synthesize(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := os.WriteFile(sayOutput, pcm.EncodeInt16LE(clip), 0o644); err != nil {
			return err
		}
		dur := pcm.L16Mono24K.Duration(int64(len(clip) * 2))
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%.1fs)\n", sayOutput, dur.Seconds())
		return nil
	},
}

func init() {
	sayCmd.Flags().StringVarP(&sayOutput, "output", "o", "out.pcm", "output file")
	rootCmd.AddCommand(sayCmd)
}
