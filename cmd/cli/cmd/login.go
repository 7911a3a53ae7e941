package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var loginSave bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify your VGMdb credentials",
	Long: `Signs in to vgmdb.net with vgmdb.username and vgmdb.password (config
file or VGMDB_VGMDB_USERNAME / VGMDB_VGMDB_PASSWORD), prompting for
whatever is missing.

The session is not kept between runs; commands that need an account sign
in again. Use --save to store the credentials in $HOME/.vgmdbcli/config.yaml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), "Verifying VGMdb credentials...")
		username, password, err := credentials(cmd)
		if err != nil {
			return err
		}
		session, err := login(cmd, username, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in to VGMdb as %s\n", session.Username())

		if !loginSave {
			return nil
		}
		path, err := saveCredentials(username, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Credentials saved to %s\n", path)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(loginCmd)

	loginCmd.Flags().BoolVar(&loginSave, "save", false, "Save the credentials to the config file")
}

// saveCredentials writes the current settings, including the credentials
// just used, to the user config file.
func saveCredentials(username, password string) (string, error) {
	viper.Set(CfgKeyUsername, username)
	viper.Set(CfgKeyPassword, password)

	dir, err := configDir()
	if err != nil {
		return "", fmt.Errorf("could not get home directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("could not create config directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, "config.yaml")
	// WriteConfigAs saves every current setting, not only the credentials.
	if err := viper.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to save credentials to %s: %w", path, err)
	}
	return path, nil
}
