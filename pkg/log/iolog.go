package log

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	redacted       = "***REDACTED***"
	maxLoggedFrame = 2000
)

// sensitiveKeys are matched case-insensitively at any depth of a frame.
var sensitiveKeys = map[string]bool{
	"token":         true,
	"private_token": true,
	"private-token": true,
	"job_token":     true,
	"access_token":  true,
	"accesstoken":   true,
	"password":      true,
	"secret":        true,
	"apikey":        true,
	"authorization": true,
}

// IOLogger wraps the stdio transport and logs each JSON-RPC frame at debug
// level with credentials redacted.
type IOLogger struct {
	in     io.Reader
	out    io.Writer
	logger *log.Logger
}

// NewIOLogger creates a new IOLogger instance
func NewIOLogger(in io.Reader, out io.Writer, logger *log.Logger) *IOLogger {
	return &IOLogger{
		in:     in,
		out:    out,
		logger: logger,
	}
}

// Read implements io.Reader, logging incoming frames
func (iol *IOLogger) Read(p []byte) (n int, err error) {
	n, err = iol.in.Read(p)
	if n > 0 {
		iol.logFrames("IN", p[:n])
	}
	return
}

// Write implements io.Writer, logging outgoing frames
func (iol *IOLogger) Write(p []byte) (n int, err error) {
	iol.logFrames("OUT", p)
	return iol.out.Write(p)
}

func (iol *IOLogger) logFrames(direction string, p []byte) {
	if !iol.logger.IsLevelEnabled(log.DebugLevel) {
		return
	}
	for _, line := range bytes.Split(p, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		iol.logger.WithField("direction", direction).Debug(redactSensitive(string(line)))
	}
}

// redactSensitive masks credential fields of a JSON frame. Input that is
// not JSON is returned unchanged, truncated.
func redactSensitive(msg string) string {
	result := msg
	if isLikelyJSON(msg) {
		var raw any
		if err := json.Unmarshal([]byte(msg), &raw); err == nil {
			if data, err := json.Marshal(redactValue(raw)); err == nil {
				result = string(data)
			}
		}
	}

	if len(result) > maxLoggedFrame {
		result = result[:maxLoggedFrame] + "... (truncated)"
	}
	return result
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, inner := range val {
			if sensitiveKeys[strings.ToLower(k)] {
				val[k] = redacted
				continue
			}
			val[k] = redactValue(inner)
		}
		return val
	case []any:
		for i, inner := range val {
			val[i] = redactValue(inner)
		}
		return val
	default:
		return v
	}
}

// isLikelyJSON checks if a string appears to be JSON
func isLikelyJSON(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}
