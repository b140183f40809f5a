package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is the component-tagged logging contract used across the module.
type Logger interface {
	Debug(component, message string, fields map[string]interface{})
	Info(component, message string, fields map[string]interface{})
	Warning(component, message string, fields map[string]interface{})
	Error(component string, err error, fields map[string]interface{})
}

// ParseLevel maps a config string to a zerolog level; unknown or empty
// values fall back to info.
func ParseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return level
}

// New builds the process logger: human-readable console output or JSON
// lines on stderr.
func New(level zerolog.Level, human bool) *ZerologAdapter {
	if human {
		return NewConsoleLogger(level)
	}
	return NewZerolog(os.Stderr, level)
}

func Nop() *ZerologAdapter {
	return &ZerologAdapter{logger: zerolog.Nop()}
}
