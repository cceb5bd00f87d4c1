package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"google.golang.org/genai"

	"github.com/firstuse/dialogue/pkg/cli"
	"github.com/firstuse/dialogue/pkg/matrix"
)

var generateCmd = &cobra.Command{
	Use:   "generate [profession]",
	Short: "Personalize the priority sentences",
	Long: `Generate profession-specific sentences for the first 10 pressure
points, one request at a time. Failed slots keep their stock sentence.
Without an argument the logged-in profile's profession is used.

Requires gemini_api_key in config.yaml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if cfg.GeminiAPIKey == "" {
			return fmt.Errorf("gemini_api_key not configured; edit %s/config.yaml", cfg.Dir)
		}

		store, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		profession := ""
		if len(args) == 1 {
			profession = args[0]
		} else if p := store.Profile(); p != nil {
			profession = p.Profession
		}
		if profession == "" {
			return fmt.Errorf("no profession given and no profile found; run 'dialogue run' first or pass one")
		}

		client, err := genai.NewClient(cmd.Context(), &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return fmt.Errorf("gemini client: %w", err)
		}

		gen := &matrix.GeminiGenerator{Client: client, Model: cfg.GenerationModel}
		orch := matrix.NewOrchestrator(gen, store)

		fmt.Fprintf(cmd.OutOrStdout(), "Generating %d sentences for %s...\n", matrix.PrioritySlots, profession)
		results, err := orch.Generate(cmd.Context(), profession)
		if err != nil {
			return err
		}

		styles := cli.NewStyles(cli.DefaultTheme)
		ok := 0
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s slot %-3s %s\n",
					styles.Help.Render("✗"), r.Slot.ID, styles.Help.Render(r.Err.Error()))
				continue
			}
			ok++
			fmt.Fprintf(cmd.OutOrStdout(), "  %s slot %-3s %s\n",
				styles.Label.Render("✓"), r.Slot.ID, r.Atom.Native)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d/%d slots personalized.\n", ok, len(results))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}
