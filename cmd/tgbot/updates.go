package main

import (
	"encoding/json"
	"fmt"

	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"

	botapi "github.com/v-v-vishnevskiy/aio-telegram-bot"
	"github.com/v-v-vishnevskiy/aio-telegram-bot/telegram"
)

func newUpdatesCmd(a *app) *cobra.Command {
	var (
		offset int64
		limit  int
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "updates",
		Short: "Fetch pending updates once and print them",
		Long:  "Calls getUpdates a single time. Updates are not confirmed unless --offset moves past them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			updates, err := client.GetUpdates(cmd.Context(), &botapi.GetUpdatesParams{Offset: offset, Limit: limit})
			if err != nil {
				return err
			}
			return printUpdates(cmd, updates, pretty)
		},
	}

	cmd.Flags().Int64Var(&offset, "offset", 0, "first update id to return")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of updates (1-100)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "pretty print updates with their classification")
	return cmd
}

func printUpdates(cmd *cobra.Command, updates []json.RawMessage, pretty bool) error {
	out := cmd.OutOrStdout()
	for _, raw := range updates {
		if !pretty {
			fmt.Fprintln(out, string(raw))
			continue
		}

		u, err := telegram.ParseUpdate(raw)
		if err != nil {
			return err
		}
		chat, incoming, content := telegram.RecognizeType(u)
		var decoded map[string]any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return err
		}
		fmt.Fprintf(out, "update %d: %s %s %s\n", u.ID(), chat, incoming, content)
		pp.Fprintln(out, decoded)
	}
	return nil
}
