package logging

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Formatter writes one compact line per entry:
// time [LEVL] [component>service] message [key:value]...
type Formatter struct {
	// PrefixFields are printed in the prefix in this order
	PrefixFields []string
	TimeFormat   string
}

// Format an entry
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	prefixFields, otherFields := f.splitFields(entry)

	b := &bytes.Buffer{}

	timeFormat := f.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	b.WriteString(entry.Time.Format(timeFormat))

	level := strings.ToUpper(entry.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}

	prefix := make([]string, 0, len(prefixFields))
	for _, field := range prefixFields {
		prefix = append(prefix, fmt.Sprint(entry.Data[field]))
	}
	fmt.Fprintf(b, " %s ", levelColor(entry.Level).Sprintf("[%s] [%s]", level, strings.Join(prefix, ">")))

	b.WriteString(strings.TrimSpace(entry.Message))

	for _, field := range otherFields {
		fmt.Fprintf(b, " [%s:%v]", field, entry.Data[field])
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func (f *Formatter) splitFields(entry *logrus.Entry) ([]string, []string) {
	prefixFields := []string{}
	otherFields := []string{}
	isPrefixField := map[string]bool{}
	for _, field := range f.PrefixFields {
		isPrefixField[field] = true
		if _, ok := entry.Data[field]; ok {
			prefixFields = append(prefixFields, field)
		}
	}
	for field := range entry.Data {
		if !isPrefixField[field] {
			otherFields = append(otherFields, field)
		}
	}
	sort.Strings(otherFields)
	return prefixFields, otherFields
}

func levelColor(level logrus.Level) *color.Color {
	switch level {
	case logrus.DebugLevel, logrus.TraceLevel:
		return color.New(color.FgWhite)
	case logrus.WarnLevel:
		return color.New(color.FgYellow)
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgCyan)
	}
}

// Setup configures the standard logger. Debug logging is off unless asked for.
func Setup(out io.Writer, debug bool) {
	logrus.SetOutput(out)
	logrus.SetFormatter(&Formatter{
		PrefixFields: []string{"component", "service", "container"},
		TimeFormat:   time.Kitchen,
	})
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}
}
