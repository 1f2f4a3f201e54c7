package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel   = "VENDORIQ_LOG_LEVEL"
	EnvLogNoColor = "VENDORIQ_LOG_NOCOLOR"
	EnvLogJSON    = "VENDORIQ_LOG_JSON"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

var configureOnce sync.Once

func ConfigureRuntime(level string) {
	Configure(ProfileRuntime, level, os.Stderr)
}

func ConfigureTests() {
	Configure(ProfileTest, "", os.Stderr)
}

// Configure installs the global zerolog logger. Only the first call has
// any effect; environment variables override level.
func Configure(profile Profile, level string, out *os.File) {
	configureOnce.Do(func() {
		lvl, ok := ParseLevel(level)
		if !ok {
			lvl = defaultLevel(profile)
		}
		if envLvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
			lvl = envLvl
		}
		zerolog.SetGlobalLevel(lvl)
		zerolog.TimeFieldFormat = time.RFC3339
		ctx := zerolog.New(writer(profile, out)).With()
		if profile != ProfileTest {
			ctx = ctx.Timestamp()
		}
		log.Logger = ctx.Logger()
	})
}

func defaultLevel(profile Profile) zerolog.Level {
	if profile == ProfileTest {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func writer(profile Profile, out *os.File) io.Writer {
	if parseBool(os.Getenv(EnvLogJSON)) {
		return out
	}
	if profile != ProfileTest && !isatty.IsTerminal(out.Fd()) && !isatty.IsCygwinTerminal(out.Fd()) {
		return out
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    parseBool(os.Getenv(EnvLogNoColor)) || profile == ProfileTest,
		TimeFormat: time.Kitchen,
	}
}

// ParseLevel maps a level name onto a zerolog level. The second result is
// false when raw is empty or unknown.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "on":
		return true
	}
	return false
}
