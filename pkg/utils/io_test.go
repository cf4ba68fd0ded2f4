package utils

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestCloseWithLog(t *testing.T) {
	var out bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&out, nil)))
	defer slog.SetDefault(prev)

	tests := []struct {
		name    string
		closer  io.Closer
		wantLog bool
	}{
		{"Nil closer", nil, false},
		{"Close succeeds", closerFunc(func() error { return nil }), false},
		{"Close fails", closerFunc(func() error { return errors.New("disk gone") }), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			CloseWithLog(tt.closer, "clip.asf")

			logged := out.String()
			if tt.wantLog != (logged != "") {
				t.Fatalf("Expected log %v, got %q", tt.wantLog, logged)
			}
			if tt.wantLog && (!strings.Contains(logged, "resource=clip.asf") || !strings.Contains(logged, "disk gone")) {
				t.Errorf("Expected resource name and error in log, got %q", logged)
			}
		})
	}
}
