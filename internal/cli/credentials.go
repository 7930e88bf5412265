// internal/cli/credentials.go
package cli

import (
	"fmt"

	"github.com/law-makers/reviewwatch/internal/auth"
	"github.com/law-makers/reviewwatch/internal/ui"
	"github.com/law-makers/reviewwatch/pkg/models"
	"github.com/spf13/cobra"
)

// credentialsCmd represents the credentials command
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage portal credentials stored in the OS keyring",
	Long: `Store or remove the portal account and password in your OS keyring.

When ZJUAM_ACCOUNT or ZJUAM_PASSWORD is not set, the keyring copy is used
instead, so the password does not have to live in a shell profile or cron file.`,
	Example: `  # Copy the credentials from the environment into the keyring
  $ ZJUAM_ACCOUNT=22100001 ZJUAM_PASSWORD=secret reviewwatch credentials save

  # Forget them again
  $ reviewwatch credentials clear`,
}

var credentialsSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the configured credentials to the keyring",
	Args:  cobra.NoArgs,
	RunE:  runCredentialsSave,
}

var credentialsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove stored credentials from the keyring",
	Args:  cobra.NoArgs,
	RunE:  runCredentialsClear,
}

func init() {
	rootCmd.AddCommand(credentialsCmd)
	credentialsCmd.AddCommand(credentialsSaveCmd)
	credentialsCmd.AddCommand(credentialsClearCmd)
}

func runCredentialsSave(cmd *cobra.Command, args []string) error {
	cfg := GetApp(cmd).Config
	creds := models.Credentials{Account: cfg.Login.Account, Password: cfg.Login.Password}

	if err := auth.Save(creds); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, ui.Success("✓ Credentials saved to keyring"))
	ui.PrintField(w, "Account", yesNo(creds.Account != ""))
	ui.PrintField(w, "Password", yesNo(creds.Password != ""))
	return nil
}

func runCredentialsClear(cmd *cobra.Command, args []string) error {
	if err := auth.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.Success("✓ Credentials removed from keyring"))
	return nil
}
