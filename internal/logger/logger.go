/**
 * @description
 * Printf-style logger for the pricing backend.
 * Info and warning lines go to stdout, errors to stderr, so container log
 * collectors only flag real failures.
 *
 * @dependencies
 * - standard "log"
 * - standard "fmt"
 */

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

var (
	// InfoLogger writes to stdout
	InfoLogger *log.Logger
	// ErrorLogger writes to stderr (for actual errors)
	ErrorLogger *log.Logger

	mu sync.RWMutex
)

func init() {
	InfoLogger = log.New(os.Stdout, "", log.LstdFlags)
	ErrorLogger = log.New(os.Stderr, "", log.LstdFlags)
}

// SetOutput redirects both loggers, mainly for tests and CLI quiet modes.
func SetOutput(info, errs io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	InfoLogger = log.New(info, "", log.LstdFlags)
	ErrorLogger = log.New(errs, "", log.LstdFlags)
}

// Info logs an info message to stdout
func Info(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	InfoLogger.Println(fmt.Sprintf(format, v...))
}

// Warn logs a recoverable anomaly to stdout with a WARN prefix
func Warn(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	InfoLogger.Println("WARN " + fmt.Sprintf(format, v...))
}

// Error logs an error message to stderr
func Error(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	ErrorLogger.Println(fmt.Sprintf(format, v...))
}

// Fatal logs an error and exits
func Fatal(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	ErrorLogger.Fatalln(fmt.Sprintf(format, v...))
}
