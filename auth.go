package main

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gdrive-go/internal/gdrive"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize access to Google Drive in the browser",
		Long: `Authorize gdrive-go against your Google account. The OAuth client settings
file downloaded from the Google Cloud console must exist at the configured
settings_file path. The resulting credentials are saved to credentials_file.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}

	cmd.Flags().Bool("no-browser", false, "print the authorization URL instead of opening a browser")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove saved credentials",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd)

	cfg, err := gdrive.LoadClientConfig(cc.Cfg.SettingsFile)
	if err != nil {
		return err
	}

	open := openBrowser
	if noBrowser, _ := cmd.Flags().GetBool("no-browser"); noBrowser {
		open = func(string) error { return fmt.Errorf("browser disabled") }
	}

	ctx := shutdownContext(cmd.Context(), cc.Logger)

	if _, err := gdrive.Login(ctx, cfg, cc.Cfg.CredentialsFile, open, cc.Logger); err != nil {
		return err
	}

	cc.Statusf("Login successful.\n")

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd)

	if err := gdrive.Logout(cc.Cfg.CredentialsFile, cc.Logger); err != nil {
		return err
	}

	cc.Statusf("Logged out.\n")

	return nil
}

// openBrowser launches the platform URL opener.
func openBrowser(url string) error {
	var c *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		c = exec.CommandContext(context.Background(), "open", url)
	case "windows":
		c = exec.CommandContext(context.Background(), "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		c = exec.CommandContext(context.Background(), "xdg-open", url)
	}

	return c.Start()
}
