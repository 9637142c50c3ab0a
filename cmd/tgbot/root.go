package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	botapi "github.com/v-v-vishnevskiy/aio-telegram-bot"
	"github.com/v-v-vishnevskiy/aio-telegram-bot/internal/keychain"
	"github.com/v-v-vishnevskiy/aio-telegram-bot/internal/utils"
	"github.com/v-v-vishnevskiy/aio-telegram-bot/telegram"
)

const envPrefix = "TGBOT"

// app carries the resolved configuration (flags, then TGBOT_* env, then config file).
type app struct {
	v *viper.Viper
	// log destination, the command's stderr once it runs
	logOut io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), logOut: os.Stderr}

	cmd := &cobra.Command{
		Use:           "tgbot",
		Short:         "Telegram bot dispatcher",
		Long:          "Run a polling or webhook bot and inspect the Bot API from the command line.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logOut = cmd.ErrOrStderr()
			return a.initConfig()
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file path (yaml, json or toml)")
	flags.String("token", "", "bot token, falls back to the system keychain")
	flags.String("bot", keychain.DefaultAccount, "keychain account the token is stored under")
	flags.String("base-url", botapi.DefaultBaseURL, "Bot API server")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error, disable)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.Duration("timeout", botapi.DefaultTimeout, "deadline of a single api request")
	for _, name := range []string{"config", "token", "bot", "base-url", "log-level", "log-format", "timeout"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newWebhookCmd(a))
	cmd.AddCommand(newUpdatesCmd(a))
	cmd.AddCommand(newTokenCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	return cmd
}

func (a *app) initConfig() error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	cfgFile := strings.TrimSpace(a.v.GetString("config"))
	if cfgFile == "" {
		return a.checkLogFormat()
	}
	a.v.SetConfigFile(cfgFile)
	if err := a.v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "reading config %s", cfgFile)
	}
	return a.checkLogFormat()
}

func (a *app) checkLogFormat() error {
	switch f := a.v.GetString("log-format"); f {
	case "text", "json":
		return nil
	default:
		return errors.Errorf("unknown log format %q, want text or json", f)
	}
}

// token returns the configured token, or the one stored in the keychain.
func (a *app) token() (string, error) {
	if t := strings.TrimSpace(a.v.GetString("token")); t != "" {
		return t, nil
	}
	t, err := keychain.Get(a.v.GetString("bot"))
	if err != nil {
		return "", errors.Wrap(err, "no --token given and none found in the keychain (see `tgbot token set`)")
	}
	return t, nil
}

func (a *app) logger(prefix string) *utils.Logger {
	return telegram.NewLogger(telegram.ParseLogLevel(a.v.GetString("log-level")), telegram.LoggerConfig{
		Prefix:     prefix,
		Output:     a.logOut,
		ShowCaller: true,
		JSONOutput: a.v.GetString("log-format") == "json",
	})
}

func (a *app) timeout() time.Duration {
	return a.v.GetDuration("timeout")
}

func (a *app) client() (*botapi.Client, error) {
	token, err := a.token()
	if err != nil {
		return nil, err
	}
	return botapi.NewClient(botapi.Config{
		Token:   token,
		BaseURL: a.v.GetString("base-url"),
		Timeout: a.timeout(),
		Logger:  a.logger("aiotgbot botapi"),
	})
}

// flagOrViper prefers an explicitly set flag, then the config key, then the flag default.
func flagOrViper[T any](cmd *cobra.Command, v *viper.Viper, flag, key string, get func(string) (T, error), fromViper func(string) T) T {
	val, _ := get(flag)
	if cmd.Flags().Changed(flag) {
		return val
	}
	if key != "" && v.IsSet(key) {
		return fromViper(key)
	}
	return val
}
