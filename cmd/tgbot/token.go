package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/v-v-vishnevskiy/aio-telegram-bot/internal/keychain"
)

func newTokenCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage bot tokens stored in the system keychain",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [token]",
		Short: "Store a token, read from stdin when not given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.Wrap(err, "reading token from stdin")
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if err := keychain.Set(a.v.GetString("bot"), token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token for %q stored\n", a.v.GetString("bot"))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the stored token, masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := keychain.Get(a.v.GetString("bot"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), maskToken(token))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := keychain.Delete(a.v.GetString("bot")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token for %q deleted\n", a.v.GetString("bot"))
			return nil
		},
	})
	return cmd
}

// maskToken keeps the bot id and the last characters of the secret part.
func maskToken(token string) string {
	id, secret, ok := strings.Cut(token, ":")
	if !ok || len(secret) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return id + ":" + strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
