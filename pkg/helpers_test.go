package mapvis

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu       sync.Mutex
	infos    []string
	warnings []string
	errors   []string
}

func (l *recordingLogger) Info(message string, module string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, fmt.Sprintf("[%s] %s", module, message))
}

func (l *recordingLogger) Warn(message string, module string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, fmt.Sprintf("[%s] %s", module, message))
}

func (l *recordingLogger) Error(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, message)
}

func (l *recordingLogger) warned(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range l.warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

// useRecordingLogger installs a recording logger for the duration of the test.
func useRecordingLogger(t *testing.T) *recordingLogger {
	t.Helper()
	rec := &recordingLogger{}
	SetLogger(rec)
	t.Cleanup(func() { SetLogger(nil) })
	return rec
}

const twoDatesJSON = `{
  "datasets": [
    {
      "date": "2024-01-01",
      "modules": [
        {
          "identifier": "PMA0",
          "channels": [
            {"name": "ch1", "ageing_factors": {"normalized_gauss_ageing_factor": 1.0, "gaussian_ageing_factor": 1.1}},
            {"name": "CH02", "ageing_factors": {"normalized_gauss_ageing_factor": 0.9}}
          ]
        }
      ]
    },
    {
      "date": "2024-02-01",
      "modules": [
        {
          "identifier": "A0",
          "channels": [
            {"name": "CH01", "ageing_factors": {"normalized_gauss_ageing_factor": 0.8}},
            {"name": "C2", "ageing_factors": {"normalized_gauss_ageing_factor": 1.2}},
            {"name": "CH77", "ageing_factors": {"normalized_gauss_ageing_factor": 0.5}}
          ]
        }
      ]
    }
  ]
}`

func loadTestDocument(t *testing.T, data string) *Document {
	t.Helper()
	doc, report, err := LoadFromBytes([]byte(data))
	require.NoError(t, err)
	require.True(t, report.Valid())
	return doc
}

// testMapping places A0:CH01..CH04 on a 2x2 grid.
func testMapping(t *testing.T) *Mapping {
	t.Helper()
	csv := "PM:Channel,row,col\nA0:CH01,0,0\nA0:CH02,0,1\nA0:CH03,1,0\nA0:CH04,1,1\n"
	m, err := ParseMapping("fta", "test.csv", strings.NewReader(csv))
	require.NoError(t, err)
	return m
}
