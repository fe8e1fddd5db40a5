package testlog

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/retrokiller543/nexsock2/internal/logging"
)

// Logger configures test-profile logging and returns a logger scoped to
// the running test.
func Logger(t *testing.T) zerolog.Logger {
	t.Helper()
	logging.ConfigureTests()
	return zerolog.New(zerolog.NewTestWriter(t)).With().Str("test", t.Name()).Logger()
}
