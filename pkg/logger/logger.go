// Package logger configures the process-wide standard logger used by the sync jobs.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Init sets UTC timestamps with microsecond precision on the standard logger.
func Init() {
	InitWithWriter(os.Stdout)
}

func InitWithWriter(w io.Writer) {
	log.SetOutput(w)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.LUTC)
	log.SetPrefix("")
}

func Info(format string, args ...any) {
	output("INFO", format, args...)
}

func Warn(format string, args ...any) {
	output("WARN", format, args...)
}

func Error(format string, args ...any) {
	output("ERROR", format, args...)
}

func output(level, format string, args ...any) {
	// depth 3 skips output and the exported helper
	_ = log.Output(3, fmt.Sprintf("[%s] %s", level, fmt.Sprintf(format, args...)))
}
