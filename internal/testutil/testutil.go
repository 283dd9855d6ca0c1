package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// Report is a single call made to a Telemetry recorder.
type Report struct {
	Level  string
	ID     string
	Params []any
}

// Telemetry is a telemetry.API that records every report so tests can
// assert on what was (or wasn't) reported.
type Telemetry struct {
	mutex   sync.Mutex
	reports []Report
}

func (t *Telemetry) push(level, id string, params []any) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.reports = append(t.reports, Report{Level: level, ID: id, Params: params})
}

func (t *Telemetry) ReportBroken(id string, params ...any) {
	t.push("broken", id, params)
}

func (t *Telemetry) ReportWarning(id string, params ...any) {
	t.push("warning", id, params)
}

func (t *Telemetry) ReportDebug(msg string, params ...any) {
	t.push("debug", msg, params)
}

func (t *Telemetry) ReportCount(id string, count int64) {
	t.push("count", id, []any{count})
}

// Reports returns the recorded reports of the given level, or all of them if
// level is empty.
func (t *Telemetry) Reports(level string) []Report {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var out []Report
	for _, r := range t.reports {
		if level == "" || r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// HasReport reports whether a report of the given level has an id containing
// the given substring.
func (t *Telemetry) HasReport(level, idSubstr string) bool {
	for _, r := range t.Reports(level) {
		if strings.Contains(r.ID, idSubstr) {
			return true
		}
	}
	return false
}

// WriteFile writes contents to name inside a fresh temp dir and returns its path.
func WriteFile(t testing.TB, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

// ReadFile reads a file or fails the test.
func ReadFile(t testing.TB, path string) string {
	t.Helper()
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(fmt.Errorf("read %s: %w", path, err))
	}
	return string(contents)
}
