// Package testutil holds shared test helpers.
package testutil

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
	"gopkg.in/dnaeon/go-vcr.v2/recorder"
)

// Recorder replays the named cassette from testdata/fixtures. Set
// VCR_MODE=record to re-record against the live API. The recorder
// stops automatically when the test finishes.
func Recorder(t *testing.T, cassetteName string) *recorder.Recorder {
	t.Helper()

	mode := recorder.ModeReplaying
	if os.Getenv("VCR_MODE") == "record" {
		mode = recorder.ModeRecording
	}

	r, err := recorder.NewAsMode(filepath.Join("testdata", "fixtures", cassetteName), mode, nil)
	if err != nil {
		t.Fatalf("creating recorder: %v", err)
	}
	t.Cleanup(func() {
		if err := r.Stop(); err != nil {
			t.Errorf("stopping recorder: %v", err)
		}
	})

	// Request bodies carry prompts that vary run to run, so match on
	// method and URL only.
	r.SetMatcher(func(req *http.Request, i cassette.Request) bool {
		return req.Method == i.Method && req.URL.String() == i.URL
	})

	return r
}

// Client wraps the recorder in an http.Client for injection.
func Client(r *recorder.Recorder) *http.Client {
	return &http.Client{Transport: r}
}
