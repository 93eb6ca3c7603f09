package log

import (
	"os"

	"github.com/rs/zerolog"
)

type Logger = zerolog.Logger

// New builds the process logger.  Dev environments get a human-readable
// console writer; everything else emits JSON lines.
func New(env string) Logger {
	if env == "dev" || env == "local" {
		out := zerolog.ConsoleWriter{Out: os.Stdout}
		return zerolog.New(out).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zerolog.InfoLevel)
}
