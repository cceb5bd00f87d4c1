package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firstuse/dialogue/pkg/atom"
	"github.com/firstuse/dialogue/pkg/session"
)

var (
	registerEmail string
	registerPhone string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register the local identity",
	Long: `Attach an email or phone to the local identity. Registration
unlocks the full sound-card catalog (only the first 3 are free).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if registerEmail == "" && registerPhone == "" {
			return fmt.Errorf("at least one of --email or --phone is required")
		}
		store, closeStore, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		profile := store.Profile()
		if profile == nil {
			return fmt.Errorf("no identity yet; run 'dialogue run --user <name>' first")
		}
		profile.Email = registerEmail
		profile.Phone = registerPhone
		profile.IsRegistered = true
		if err := store.SaveProfile(cmd.Context(), profile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered. All %d sound cards unlocked (was %d).\n",
			len(atom.SoundCards()), session.FreeSoundCardLimit)
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "contact email")
	registerCmd.Flags().StringVar(&registerPhone, "phone", "", "contact phone")
	rootCmd.AddCommand(registerCmd)
}
