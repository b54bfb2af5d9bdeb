package config

import (
	"encoding/json"
	"fmt"
	"runtime"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	ansiRed         = 31
	ansiGreen       = 32
	ansiYellow      = 33
	ansiBlue        = 36
	ansiGray        = 37
	ansiLightGreen  = 92
	ansiLightYellow = 93
	ansiCyan        = 96
)

// WbFormatter renders entries as colorized key=value lines with a
// deterministic field order.
type WbFormatter struct{}

func (f *WbFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b strings.Builder

	pair := func(key, value string, valueColor int) {
		fmt.Fprintf(&b, "\x1b[%dm%s\x1b[0m=\x1b[%dm%s\x1b[0m ", ansiCyan, key, valueColor, value)
	}

	pair("level", strings.ToUpper(entry.Level.String())[:4], levelColor(entry.Level))
	pair("ts", entry.Time.Format("2006-01-02 15:04:05.000"), ansiLightYellow)
	if _, file, line, ok := runtime.Caller(6); ok {
		pair("source", fmt.Sprintf("%s:%d", file, line), ansiLightYellow)
	}

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		raw, err := json.Marshal(entry.Data[k])
		if err != nil || len(raw) == 0 {
			continue
		}
		value := string(raw)
		valueColor := ansiCyan
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			valueColor = ansiGreen
		} else if strings.HasPrefix(value, `"`) {
			valueColor = ansiLightYellow
		}
		pair(k, value, valueColor)
	}
	pair("msg", strconv.Quote(entry.Message), ansiLightGreen)

	line := strings.TrimRight(b.String(), " ")
	line = strings.ReplaceAll(line, "\r", `\r`)
	line = strings.ReplaceAll(line, "\n", `\n`)
	return []byte(line + "\n"), nil
}

func levelColor(level log.Level) int {
	switch level {
	case log.PanicLevel, log.FatalLevel, log.ErrorLevel:
		return ansiRed
	case log.WarnLevel:
		return ansiYellow
	case log.DebugLevel, log.TraceLevel:
		return ansiGray
	default:
		return ansiBlue
	}
}
