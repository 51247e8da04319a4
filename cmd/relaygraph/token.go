package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hanpama/relaygraph/internal/request"
	"github.com/hanpama/relaygraph/internal/server"
)

func (c *cli) tokenCmd() *cobra.Command {
	var u request.User
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token with auth.jwt_secret for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not configured")
			}
			if u.ID == "" {
				u.ID = u.Username
			}
			tok, err := server.NewAuthenticator([]byte(c.cfg.Auth.JWTSecret)).Sign(&u, c.cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&u.Username, "user", "dev", "username")
	fs.StringVar(&u.ID, "id", "", "subject; the username when empty")
	fs.BoolVar(&u.Staff, "staff", false, "mark the user as staff")
	fs.BoolVar(&u.Superuser, "superuser", false, "mark the user as superuser")
	fs.StringSliceVar(&u.Permissions, "perm", nil, "granted permission; repeatable")
	return cmd
}
