package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, recording).
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// ConsoleLogger writes human-readable logs to an output and an error stream.
// Debug messages are only written when verbose output is enabled.
type ConsoleLogger struct {
	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	verbose bool
}

// NewConsoleLogger logs info and debug to stdout, warnings and errors to stderr.
func NewConsoleLogger() *ConsoleLogger {
	return NewConsoleLoggerTo(os.Stdout, os.Stderr)
}

// NewConsoleLoggerTo creates a console logger on explicit writers.
// yamlcheck sends everything to stderr so stdout only carries documents.
func NewConsoleLoggerTo(out, errOut io.Writer) *ConsoleLogger {
	return &ConsoleLogger{out: out, errOut: errOut}
}

// SetVerbose enables or disables debug output.
func (c *ConsoleLogger) SetVerbose(verbose bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verbose = verbose
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	c.write(c.out, "[INFO] ", msg, args...)
}

func (c *ConsoleLogger) Warn(msg string, args ...interface{}) {
	c.write(c.errOut, "[WARN] ", msg, args...)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	c.write(c.errOut, "[ERROR] ", msg, args...)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	c.mu.Lock()
	verbose := c.verbose
	c.mu.Unlock()
	if !verbose {
		return
	}
	c.write(c.out, "[DEBUG] ", msg, args...)
}

func (c *ConsoleLogger) write(w io.Writer, prefix, msg string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(w, prefix+msg+"\n", args...)
}

// SilentLogger discards all log messages.
// Used when running in TUI mode to prevent log output from interfering with the display.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Warn(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}
