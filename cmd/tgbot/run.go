package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/v-v-vishnevskiy/aio-telegram-bot/telegram"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo bot with long polling",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}

			opts := pollOptions(cmd, a)
			log := a.logger("aiotgbot dispatcher")
			bot := telegram.NewBot(client, demoHandlers(), telegram.BotConfig{Logger: log})
			bot.Use(logUpdates(log))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := bot.Initialize(ctx, opts); err != nil {
				return err
			}
			log.Info("polling for updates, press Ctrl+C to stop")
			<-ctx.Done()

			log.Info("stopping")
			return bot.Close()
		},
	}

	cmd.Flags().Duration("interval", telegram.DefaultInterval, "pause between two getUpdates calls")
	cmd.Flags().Duration("poll-timeout", 30*time.Second, "long polling timeout, 0 for short polling")
	cmd.Flags().Int("limit", telegram.DefaultSchedulerLimit, "handlers running at once")
	cmd.Flags().StringSlice("allowed-updates", nil, "update kinds to receive")
	return cmd
}

func pollOptions(cmd *cobra.Command, a *app) telegram.InitOptions {
	f := cmd.Flags()
	return telegram.InitOptions{
		Interval:       flagOrViper(cmd, a.v, "interval", "poll.interval", f.GetDuration, a.v.GetDuration),
		PollTimeout:    flagOrViper(cmd, a.v, "poll-timeout", "poll.timeout", f.GetDuration, a.v.GetDuration),
		Limit:          flagOrViper(cmd, a.v, "limit", "scheduler.limit", f.GetInt, a.v.GetInt),
		AllowedUpdates: flagOrViper(cmd, a.v, "allowed-updates", "poll.allowed_updates", f.GetStringSlice, a.v.GetStringSlice),
	}
}
