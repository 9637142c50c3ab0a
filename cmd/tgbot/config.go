package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// effectiveConfig is what `tgbot config` prints.
type effectiveConfig struct {
	ConfigFile string `yaml:"config_file,omitempty"`
	Bot        string `yaml:"bot"`
	Token      string `yaml:"token"`
	BaseURL    string `yaml:"base_url"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
	Timeout    string `yaml:"timeout"`
	Poll       struct {
		Interval       string   `yaml:"interval,omitempty"`
		Timeout        string   `yaml:"timeout,omitempty"`
		AllowedUpdates []string `yaml:"allowed_updates,omitempty"`
	} `yaml:"poll"`
	Webhook map[string]any `yaml:"webhook,omitempty"`
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := effectiveConfig{
				ConfigFile: a.v.ConfigFileUsed(),
				Bot:        a.v.GetString("bot"),
				BaseURL:    a.v.GetString("base-url"),
				LogLevel:   a.v.GetString("log-level"),
				LogFormat:  a.v.GetString("log-format"),
				Timeout:    a.timeout().String(),
				Webhook:    a.v.GetStringMap("webhook"),
			}
			cfg.Token = "<keychain>"
			if token := a.v.GetString("token"); token != "" {
				cfg.Token = maskToken(token)
			}
			cfg.Poll.Interval = a.v.GetString("poll.interval")
			cfg.Poll.Timeout = a.v.GetString("poll.timeout")
			cfg.Poll.AllowedUpdates = a.v.GetStringSlice("poll.allowed_updates")

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
}
