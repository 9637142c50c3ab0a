package telegram

import (
	"io"

	"github.com/v-v-vishnevskiy/aio-telegram-bot/internal/utils"
)

// Logger is the leveled logger used by the bot and the api client.
type Logger = utils.Logger

type LogLevel = utils.LogLevel

type LogFormatter = utils.LogFormatter

type LogEntry = utils.LogEntry

const (
	LogTrace   = utils.TraceLevel
	LogDebug   = utils.DebugLevel
	LogInfo    = utils.InfoLevel
	LogWarn    = utils.WarnLevel
	LogError   = utils.ErrorLevel
	LogFatal   = utils.FatalLevel
	LogPanic   = utils.PanicLevel
	LogDisable = utils.NoLevel
)

type LoggerConfig struct {
	Level  LogLevel
	Prefix string
	// default: os.Stderr
	Output     io.Writer
	Formatter  LogFormatter
	Color      bool
	ShowCaller bool
	// Enable JSON output mode
	JSONOutput bool
}

func NewLogger(level LogLevel, config ...LoggerConfig) *Logger {
	internal := &utils.LoggerConfig{Level: level}
	if len(config) > 0 {
		c := config[0]
		internal.Prefix = c.Prefix
		internal.Output = c.Output
		internal.Formatter = c.Formatter
		internal.Color = c.Color
		internal.ShowCaller = c.ShowCaller
		internal.JSON = c.JSONOutput
	}
	return utils.NewLoggerWithConfig(internal)
}

// ParseLogLevel maps trace, debug, info, warn, error and disable to a level.
func ParseLogLevel(s string) LogLevel {
	return utils.ParseLevel(s)
}
