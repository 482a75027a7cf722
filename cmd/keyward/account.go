// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

package main

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

func newRegisterCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register EMAIL",
		Short: "Register a new user",
		Long: `Register a new user with EMAIL. The password is taken from --password,
or from the first line of standard input when the flag is not given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}

			svc, _, release, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			user, err := svc.Register(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			cmd.Printf("registered %s\n", user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login EMAIL",
		Short: "Check a user's password",
		Long: `Check the password for EMAIL. Prints "valid" and exits 0 on a match,
otherwise prints "invalid" and exits 1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}

			svc, _, release, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			valid, err := svc.ValidateLogin(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			if !valid {
				cmd.Println("invalid")
				return &exitError{code: 1}
			}
			cmd.Println("valid")
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")
	return cmd
}

func newSessionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "session EMAIL",
		Short: "Issue a new session token",
		Long: `Issue a new session token for EMAIL, replacing any previous one, and
print it. Exits 1 if no such user exists.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, release, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			token, ok, err := svc.CreateSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				cmd.PrintErrln("no such user")
				return &exitError{code: 1}
			}
			cmd.Println(token)
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami TOKEN",
		Short: "Resolve a session token to its user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, release, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			user, ok, err := svc.UserFromSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				cmd.PrintErrln("no active session")
				return &exitError{code: 1}
			}
			cmd.Printf("%s %s\n", user.ID, user.Email)
			return nil
		},
	}
}

// readPassword returns flagValue, or the first line of the command's input.
func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", oops.Code("PASSWORD_REQUIRED").Errorf("no password given on --password or stdin")
	}
	return line, nil
}
