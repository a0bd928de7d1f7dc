package cmd

import (
	"github.com/spf13/cobra"
)

var loginAccount string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Open an authenticated browser session for an account",
	Long: `Login checks an account's credentials against its region's site. Run it
with HEADLESS=false to keep a visible browser for manual inspection.`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&loginAccount, "account", "a", "", "account id (defaults to ACCOUNT_ID)")
}

func runLogin(cmd *cobra.Command, _ []string) error {
	id, err := app.accountFlag(loginAccount)
	if err != nil {
		return err
	}
	acct, region, err := app.store.AccountAndRegion(id)
	if err != nil {
		return err
	}

	session, err := app.chromeFactory().NewSession(cmd.Context(), region)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Login(cmd.Context(), acct.ID, acct.Password, region.LoginRedirectManage()); err != nil {
		return err
	}
	pages, err := session.PageCount(cmd.Context())
	if err != nil {
		return err
	}
	app.logger.Info("Logged in as %s on %s (%d manage pages)", acct.ID, region.BaseURL, pages)
	return nil
}
