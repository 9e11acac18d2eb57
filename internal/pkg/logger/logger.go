// Package logger emits structured JSON log lines to stderr. Values in
// known-sensitive fields (customer emails, source API credentials) are
// redacted before they are written; log storage sits outside the
// boundary customer data is allowed to cross.
package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Level ranks log severity.
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

var (
	mu       sync.Mutex
	minLevel = INFO
)

// Configure sets the minimum level by name ("debug", "info", "warn",
// "error"). Unknown or empty names keep the default of info.
func Configure(levelName string) {
	switch strings.ToLower(levelName) {
	case "debug":
		minLevel = DEBUG
	case "info":
		minLevel = INFO
	case "warn":
		minLevel = WARN
	case "error":
		minLevel = ERROR
	}
}

// Debug emits a DEBUG-level entry.
func Debug(msg string, fields ...any) { emit(DEBUG, msg, fields) }

// Info emits an INFO-level entry.
func Info(msg string, fields ...any) { emit(INFO, msg, fields) }

// Warn emits a WARN-level entry.
func Warn(msg string, fields ...any) { emit(WARN, msg, fields) }

// Error emits an ERROR-level entry.
func Error(msg string, fields ...any) { emit(ERROR, msg, fields) }

func emit(level Level, msg string, fields []any) {
	if level < minLevel {
		return
	}

	entry := map[string]any{
		"time":  time.Now().UTC().Format(time.RFC3339),
		"level": levelNames[level],
		"msg":   msg,
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		val := fmt.Sprintf("%v", fields[i+1])
		entry[key] = redactPIIValue(key, val)
	}

	data, _ := json.Marshal(entry)
	mu.Lock()
	fmt.Fprintln(os.Stderr, string(data))
	mu.Unlock()
}

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	if isSecretKey(key) {
		return RedactSecret(val)
	}
	if strings.Contains(key, "email") || strings.Contains(key, "customer") || strings.Contains(key, "invitee") {
		return RedactEmail(val)
	}
	// Generic fields may still embed an address.
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}
