package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/firstuse/dialogue/pkg/atom"
	"github.com/firstuse/dialogue/pkg/cli"
	"github.com/firstuse/dialogue/pkg/progress"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show exposure progress",
	Long: `Show the logged-in profile and a map of which sentences and sound
cards have been spoken out loud at least once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		out := cmd.OutOrStdout()
		styles := cli.NewStyles(cli.DefaultTheme)

		profile := store.Profile()
		if profile == nil {
			fmt.Fprintln(out, "No identity yet. Start with 'dialogue run --user <name>'.")
			return nil
		}

		fmt.Fprintf(out, "%s (%s)\n", styles.Label.Render(profile.Username), profile.Profession)
		fmt.Fprintf(out, "  day %d", store.DaysActive(time.Now()))
		if profile.IsRegistered {
			fmt.Fprint(out, " · registered")
		}
		fmt.Fprintln(out)

		seq := store.Sequence()
		exposed := make(map[int]bool, len(seq))
		for i, a := range seq {
			if store.IsExposed(progress.KindAtom, a.ID) {
				exposed[i] = true
			}
		}
		fmt.Fprintf(out, "\nSentences: %d/%d spoken\n", store.ExposedCount(progress.KindAtom), len(seq))
		fmt.Fprintln(out, styles.ProgressMap(len(seq), exposed, 30))

		cards := atom.SoundCards()
		exposedCards := make(map[int]bool, len(cards))
		for i, c := range cards {
			if store.IsExposed(progress.KindSound, c.ID) {
				exposedCards[i] = true
			}
		}
		fmt.Fprintf(out, "\nSound cards: %d/%d spoken\n", store.ExposedCount(progress.KindSound), len(cards))
		fmt.Fprintln(out, styles.ProgressMap(len(cards), exposedCards, 30))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(progressCmd)
}
