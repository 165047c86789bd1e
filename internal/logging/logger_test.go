package logging

import (
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestEventFormatter(t *testing.T) {
	f := &EventFormatter{SystemName: "nervetask"}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "Event ID: X, Description: y",
		Data:    logrus.Fields{"tenant": 3, "action": "activate"},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	line := string(out)

	for _, want := range []string{
		"Date: 2024-05-01, Time: 10:30:00",
		"Event Source: nervetask",
		"Event Type: WARNING",
		"Message: Event ID: X, Description: y",
		"action=activate, tenant=3",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("missing %q in %q", want, line)
		}
	}
	if !strings.HasSuffix(line, "\n") {
		t.Error("line must end with a newline")
	}
}
