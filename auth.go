package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/teams-kdbx/internal/auth"
	"github.com/tonimelisma/teams-kdbx/internal/locale"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to Microsoft 365 and store the token",
		Long: `Sign in interactively. By default the sign-in page opens in the browser and
redirects to a temporary localhost listener. With --host-handoff the sign-in
runs through the start-auth and auth-end pages served on the configured origin.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	s, err := NewSession(ctx, cc, launchParams(cc))
	if err != nil {
		return err
	}
	defer s.Close()

	if s.Auth.Mode() == auth.ModeHostHandoff {
		cc.Statusf("%s\n", cc.Printer.T(locale.AuthHandoffStarted))
	} else {
		cc.Statusf("%s\n", cc.Printer.T(locale.AuthWaiting))
	}

	if _, err := s.Auth.Login(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	cc.Logger.Info("login successful", "mode", string(s.Auth.Mode()))
	cc.Statusf("Login successful.\n")

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	s, err := NewSession(cmd.Context(), cc, launchParams(cc))
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Auth.Logout(cmd.Context()); err != nil {
		return err
	}

	cc.Statusf("%s\n", cc.Printer.T(locale.LoggedOut))

	return nil
}
