package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"nerlight/internal/detect"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()
	_ = w.Close()
	var b bytes.Buffer
	_, _ = b.ReadFrom(r)
	return b.String()
}

func jsonSection(t *testing.T, out string) []detect.Detection {
	t.Helper()
	_, raw, ok := strings.Cut(out, "JSON Output:\n")
	if !ok {
		t.Fatalf("no JSON section in output:\n%s", out)
	}
	var found []detect.Detection
	if err := json.Unmarshal([]byte(raw), &found); err != nil {
		t.Fatalf("decode JSON section: %v\n%s", err, raw)
	}
	return found
}

func TestRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"entities":[{"entity":"B-PATIENT","score":0.93,"word":"Jane","start":8,"end":12}]}`))
	}))
	defer srv.Close()

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
		want     []detect.Detection
	}{
		{
			name: "regex PCI",
			args: []string{"--category", "pci", "Card 4111111111111111 ok"},
			want: []detect.Detection{{Start: 5, End: 21, MatchedText: "4111111111111111", Category: detect.PCI, Confidence: 0.97, EntityType: "CREDITCARDNUMBER"}},
		},
		{
			name: "regex PII",
			args: []string{"write to jane@example.com"},
			want: []detect.Detection{{Start: 9, End: 25, MatchedText: "jane@example.com", Category: detect.PII, Confidence: 0.99, EntityType: "EMAIL"}},
		},
		{
			name: "sidecar PHI",
			args: []string{"--category", "PHI", "--kind", "sidecar", "patient Jane"},
			want: []detect.Detection{{Start: 8, End: 12, MatchedText: "Jane", Category: detect.PHI, Confidence: 0.93, EntityType: "PATIENT"}},
		},
		{
			name:    "nothing found",
			args:    []string{"--category", "PHI", "hello"},
			wantOut: "Found 0 detections",
		},
		{
			name:     "missing text",
			args:     []string{"--category", "PII"},
			wantCode: 1,
			wantOut:  "Usage: test-ner",
		},
		{
			name:     "unknown kind",
			args:     []string{"--kind", "spacy", "text"},
			wantCode: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			t.Setenv("NERLIGHT_SIDECAR_URL", srv.URL)

			var code int
			out := captureStdout(t, func() { code = run(tt.args) })
			if code != tt.wantCode {
				t.Fatalf("exit code %d, want %d\n%s", code, tt.wantCode, out)
			}
			if tt.wantOut != "" && !strings.Contains(out, tt.wantOut) {
				t.Fatalf("output missing %q:\n%s", tt.wantOut, out)
			}
			if tt.want == nil {
				return
			}
			found := jsonSection(t, out)
			if len(found) != len(tt.want) {
				t.Fatalf("got %+v, want %+v", found, tt.want)
			}
			for i := range found {
				if found[i] != tt.want[i] {
					t.Fatalf("got %+v, want %+v", found[i], tt.want[i])
				}
			}
		})
	}
}
