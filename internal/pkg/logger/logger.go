// Package logger writes structured JSON log lines with PII and credential
// redaction. Mandrill API keys and recipient addresses both flow through the
// gateway, so neither should ever reach a log sink in clear text.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// ParseLevel maps a config string ("debug", "info", ...) to a Level.
// Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	for l, name := range levelNames {
		if strings.EqualFold(s, name) {
			return l
		}
	}
	return INFO
}

// Logger emits one JSON object per line.
type Logger struct {
	mu        sync.Mutex
	out       io.Writer
	level     Level
	redactPII bool
	fields    []interface{}
}

// New creates a Logger writing to w. A nil writer means stderr.
func New(w io.Writer, level Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{out: w, level: level, redactPII: true}
}

var defaultLogger = New(os.Stderr, INFO)

// Default returns the process-wide logger used by the package-level helpers.
func Default() *Logger { return defaultLogger }

// SetLevel sets the minimum log level for the default logger.
func SetLevel(l Level) { defaultLogger.SetLevel(l) }

// SetRedactPII enables or disables email redaction for the default logger.
// Credential masking is always on.
func SetRedactPII(r bool) {
	defaultLogger.mu.Lock()
	defaultLogger.redactPII = r
	defaultLogger.mu.Unlock()
}

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { defaultLogger.log(DEBUG, msg, fields...) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { defaultLogger.log(INFO, msg, fields...) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { defaultLogger.log(WARN, msg, fields...) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { defaultLogger.log(ERROR, msg, fields...) }

// SetLevel changes the minimum level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// With returns a child logger that adds the given key/value pairs to every entry.
func (l *Logger) With(fields ...interface{}) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	child := &Logger{out: l.out, level: l.level, redactPII: l.redactPII}
	child.fields = append(append([]interface{}{}, l.fields...), fields...)
	return child
}

func (l *Logger) Debug(msg string, fields ...interface{}) { l.log(DEBUG, msg, fields...) }
func (l *Logger) Info(msg string, fields ...interface{})  { l.log(INFO, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...interface{})  { l.log(WARN, msg, fields...) }
func (l *Logger) Error(msg string, fields ...interface{}) { l.log(ERROR, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	entry := map[string]interface{}{
		"time":  time.Now().UTC().Format(time.RFC3339),
		"level": levelNames[level],
		"msg":   msg,
	}

	all := append(append([]interface{}{}, l.fields...), fields...)
	for i := 0; i < len(all)-1; i += 2 {
		key := fmt.Sprintf("%v", all[i])
		val := fmt.Sprintf("%v", all[i+1])
		entry[key] = redactValue(key, val, l.redactPII)
	}

	data, _ := json.Marshal(entry)
	fmt.Fprintln(l.out, string(data))
}

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

func redactValue(key, val string, redactPII bool) string {
	key = strings.ToLower(key)
	if isSecretKey(key) {
		return RedactToken(val)
	}
	if !redactPII {
		return val
	}
	if strings.Contains(key, "email") || strings.Contains(key, "recipient") {
		return RedactEmail(val)
	}
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}

func isSecretKey(key string) bool {
	for _, s := range []string{"token", "api_key", "apikey", "secret", "password"} {
		if strings.Contains(key, s) {
			return true
		}
	}
	return key == "key"
}
