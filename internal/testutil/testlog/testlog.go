package testlog

import (
	"testing"

	"github.com/danmuck/uorlink/internal/logging"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	lg := logging.Component("test")
	lg.Info().Str("test", t.Name()).Msg("start")
}
