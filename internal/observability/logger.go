package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/retrokiller543/nexsock2/internal/logging"
)

// InitLogger builds the process logger and installs it as the zerolog
// global.
func InitLogger(app string) zerolog.Logger {
	logging.ConfigureRuntime()
	return InitLoggerTo(app, zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    logging.Current().NoColor,
	})
}

// InitLoggerTo builds the process logger against an explicit sink.
func InitLoggerTo(app string, out io.Writer) zerolog.Logger {
	ctx := zerolog.New(out).With().Str("app", app)
	if logging.Current().Timestamp {
		ctx = ctx.Timestamp()
	}
	logger := ctx.Logger()
	log.Logger = logger
	return logger
}
