package ipo

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// RedactionMarker replaces any secret-bearing field value before an
	// exchange is written to disk.
	RedactionMarker = "***REDACTED***"

	maxLoggedBodyLen = 2000
)

// WireLogger persists appliance request/response exchanges, one JSON line
// per entry, in a day-partitioned file. Only mutating exchanges (POST/PUT)
// are kept; read traffic would swamp the log with full entity dumps. Every
// failure path is swallowed — logging must never affect the caller.
type WireLogger struct {
	dir    string
	logger *slog.Logger
}

func NewWireLogger(dir string, logger *slog.Logger) *WireLogger {
	if dir == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WireLogger{dir: dir, logger: logger}
}

// WireEntry is one appliance exchange as handed over by the request
// executor.
type WireEntry struct {
	Time         time.Time
	Method       string
	URL          string
	Status       int
	OK           bool
	Err          string
	RequestBody  any
	ResponseText string
}

type wireLine struct {
	TS           string          `json:"ts"`
	Method       string          `json:"method"`
	URL          string          `json:"url"`
	OK           bool            `json:"ok"`
	Status       int             `json:"status,omitempty"`
	Error        string          `json:"error,omitempty"`
	RequestBody  json.RawMessage `json:"requestBody,omitempty"`
	ResponseText string          `json:"responseText,omitempty"`
}

// Log writes one exchange to the current day file. Safe on a nil receiver.
func (w *WireLogger) Log(e WireEntry) {
	if w == nil {
		return
	}
	if e.Method != "POST" && e.Method != "PUT" {
		return
	}

	line := wireLine{
		TS:           e.Time.UTC().Format(time.RFC3339),
		Method:       e.Method,
		URL:          e.URL,
		OK:           e.OK,
		Status:       e.Status,
		Error:        e.Err,
		ResponseText: redactResponseText(e.ResponseText),
	}
	if e.RequestBody != nil {
		if encoded, err := json.Marshal(Redact(e.RequestBody)); err == nil {
			line.RequestBody = encoded
		}
	}

	encoded, err := json.Marshal(line)
	if err != nil {
		w.logger.Debug("wire log encode failed", "error", err)
		return
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		w.logger.Debug("wire log mkdir failed", "dir", w.dir, "error", err)
		return
	}

	file := filepath.Join(w.dir, e.Time.UTC().Format("2006-01-02")+".log")
	f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		w.logger.Debug("wire log open failed", "file", file, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(encoded, '\n')); err != nil {
		w.logger.Debug("wire log write failed", "file", file, "error", err)
	}
}

// Redact walks a value and replaces every field whose name looks like a
// password, login code, or voicemail code with RedactionMarker, preserving
// structure otherwise. Non-map input is re-encoded through JSON so struct
// bodies get the same treatment as maps.
func Redact(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if isSensitiveField(k) {
				out[k] = RedactionMarker
			} else {
				out[k] = Redact(val)
			}
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, val := range t {
			if isSensitiveField(k) {
				out[k] = RedactionMarker
			} else {
				out[k] = val
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Redact(val)
		}
		return out
	case nil, string, bool, float64, int, json.Number:
		return t
	default:
		encoded, err := json.Marshal(t)
		if err != nil {
			return t
		}
		var generic any
		if err := json.Unmarshal(encoded, &generic); err != nil {
			return t
		}
		return Redact(generic)
	}
}

func isSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "password") ||
		strings.Contains(lower, "logincode") ||
		strings.Contains(lower, "voicemailcode")
}

// redactResponseText re-serializes JSON responses compactly with secrets
// masked; anything else is truncated.
func redactResponseText(text string) string {
	if text == "" {
		return ""
	}

	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		if encoded, err := json.Marshal(Redact(parsed)); err == nil {
			return string(encoded)
		}
	}

	trimmed := strings.TrimSpace(text)
	if len(trimmed) > maxLoggedBodyLen {
		return trimmed[:maxLoggedBodyLen] + "…"
	}
	return trimmed
}
