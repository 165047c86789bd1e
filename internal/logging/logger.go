package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger. It writes to stderr until Init runs.
var Logger = logrus.New()

var once sync.Once

type Options struct {
	System string
	// File enables rotation through lumberjack; empty means stdout.
	File  string
	Level string
}

// EventFormatter prints one line per entry with a fresh event id.
type EventFormatter struct {
	SystemName string
}

func (f *EventFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	t := entry.Time.UTC()
	fmt.Fprintf(b, "Date: %s, Time: %s, ", t.Format("2006-01-02"), t.Format("15:04:05"))
	fmt.Fprintf(b, "Event Source: %s, ", f.SystemName)
	fmt.Fprintf(b, "Event Type: %s, ", strings.ToUpper(entry.Level.String()))
	fmt.Fprintf(b, "Event UUID: %s, ", uuid.NewString())
	fmt.Fprintf(b, "Message: %s", entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(b, ", %s=%v", k, entry.Data[k])
		}
	}

	if entry.HasCaller() {
		fmt.Fprintf(b, ", Location: %s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func Init(opts Options) error {
	var err error
	once.Do(func() {
		var out io.Writer = os.Stdout
		if opts.File != "" {
			if mkErr := os.MkdirAll(filepath.Dir(opts.File), 0o700); mkErr != nil {
				err = fmt.Errorf("create log directory: %w", mkErr)
				return
			}
			out = &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
				Compress:   true,
			}
		}

		level := logrus.InfoLevel
		if opts.Level != "" {
			parsed, parseErr := logrus.ParseLevel(opts.Level)
			if parseErr != nil {
				err = parseErr
				return
			}
			level = parsed
		}

		Logger.SetOutput(out)
		Logger.SetFormatter(&EventFormatter{SystemName: opts.System})
		Logger.SetLevel(level)
		Logger.SetReportCaller(true)

		Logger.Infof("Event ID: LOGGER_INITIALIZED, Description: Logger initialized for %s", opts.System)
	})
	return err
}
