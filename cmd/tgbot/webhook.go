package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	botapi "github.com/v-v-vishnevskiy/aio-telegram-bot"
	"github.com/v-v-vishnevskiy/aio-telegram-bot/telegram"
)

func newWebhookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Serve the demo bot through a webhook",
		Long: "Registers --url with setWebhook, serves pushed updates on --listen and removes the\n" +
			"webhook again on shutdown.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			listen := flagOrViper(cmd, a.v, "listen", "webhook.listen", f.GetString, a.v.GetString)
			url := flagOrViper(cmd, a.v, "url", "webhook.url", f.GetString, a.v.GetString)
			path := flagOrViper(cmd, a.v, "path", "webhook.path", f.GetString, a.v.GetString)
			secret := flagOrViper(cmd, a.v, "secret", "webhook.secret", f.GetString, a.v.GetString)
			certFile := flagOrViper(cmd, a.v, "cert", "webhook.cert", f.GetString, a.v.GetString)
			keyFile := flagOrViper(cmd, a.v, "key", "webhook.key", f.GetString, a.v.GetString)
			if url == "" {
				return errors.New("--url is required")
			}

			client, err := a.client()
			if err != nil {
				return err
			}
			log := a.logger("aiotgbot dispatcher")
			bot := telegram.NewBot(client, demoHandlers(), telegram.BotConfig{Logger: log})
			bot.Use(logUpdates(log))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := bot.Initialize(ctx, telegram.InitOptions{Webhook: true}); err != nil {
				return err
			}
			defer bot.Close()

			if err := client.SetWebhook(ctx, &botapi.SetWebhookParams{
				URL:         url,
				Certificate: certFile,
				SecretToken: secret,
			}); err != nil {
				return errors.Wrap(err, "registering webhook")
			}

			mux := http.NewServeMux()
			mux.Handle(path, telegram.NewWebhookHandler(bot, secret))
			srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

			serveErr := make(chan error, 1)
			go func() {
				if certFile != "" && keyFile != "" {
					serveErr <- srv.ListenAndServeTLS(certFile, keyFile)
				} else {
					serveErr <- srv.ListenAndServe()
				}
			}()
			log.Info("serving webhook %s on %s%s", url, listen, path)

			select {
			case <-ctx.Done():
			case err = <-serveErr:
				log.WithError(err).Error("webhook server stopped")
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("webhook server shutdown")
			}
			if err := client.DeleteWebhook(shutdownCtx, false); err != nil {
				log.WithError(err).Warn("removing webhook")
			}
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().String("listen", ":8443", "address to serve webhook requests on")
	cmd.Flags().String("url", "", "public https url telegram pushes updates to")
	cmd.Flags().String("path", "/webhook", "http path of the webhook handler")
	cmd.Flags().String("secret", "", "secret token telegram echoes in every request")
	cmd.Flags().String("cert", "", "TLS certificate (also uploaded for self-signed setups)")
	cmd.Flags().String("key", "", "TLS private key")
	return cmd
}
