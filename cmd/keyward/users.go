// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyward Contributors

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/keyward/keyward/internal/auth"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect stored users",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Log every user record through the redacting logger",
		Long: `Log one line per stored user. Records are written as key=value; fields
in the log message, so fields matching log.redact patterns are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, users, release, err := a.service(ctx)
			if err != nil {
				return err
			}
			defer release()

			list, err := users.List(ctx)
			if err != nil {
				return err
			}
			for _, u := range list {
				a.logger.InfoContext(ctx, userRecord(u))
			}
			cmd.Printf("dumped %d users\n", len(list))
			return nil
		},
	})
	return cmd
}

// userRecord renders u as a field=value; record.
func userRecord(u *auth.User) string {
	token := ""
	if u.SessionToken != nil {
		token = *u.SessionToken
	}
	return fmt.Sprintf("id=%s;email=%s;hashed_password=%s;session_token=%s;created_at=%s;updated_at=%s;",
		u.ID, u.Email, u.HashedPassword, token,
		u.CreatedAt.UTC().Format(time.RFC3339), u.UpdatedAt.UTC().Format(time.RFC3339))
}
