package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newAuthCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newLoginCommand(ctx),
		newSignupCommand(ctx),
		newLogoutCommand(ctx),
		newResetPasswordCommand(ctx),
		newWhoamiCommand(ctx),
	}
}

// readPassword takes the flag value, or the first line of stdin.
func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.requireAuth()
			if err != nil {
				return err
			}
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			session, err := mgr.SignIn(cmd.Context(), email, pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", session.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSignupCommand(ctx *commandContext) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.requireAuth()
			if err != nil {
				return err
			}
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			session, active, err := mgr.SignUp(cmd.Context(), email, pw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !active {
				fmt.Fprintf(out, "Account created for %s. Confirm your email, then run `transcribe login`.\n", email)
				return nil
			}
			fmt.Fprintf(out, "Account created; signed in as %s\n", session.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.requireAuth()
			if err != nil {
				return err
			}
			if err := mgr.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newResetPasswordCommand(ctx *commandContext) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Email a password recovery link",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.requireAuth()
			if err != nil {
				return err
			}
			if err := mgr.ResetPassword(cmd.Context(), email); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recovery email sent to %s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.requireAuth()
			if err != nil {
				return err
			}
			if _, ok := mgr.Session(); !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			user, err := mgr.RefreshUser(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
}
