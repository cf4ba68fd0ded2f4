package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"asfdemux/internal/api"
	"asfdemux/pkg/asf"
	"asfdemux/pkg/demux"
)

func writeFile(t *testing.T, cfg asf.MuxerConfig) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "synthetic.asf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()
	if _, err := writeSynthetic(f, 3, cfg, false); err != nil {
		t.Fatalf("writeSynthetic failed: %v", err)
	}
	return path
}

func TestRunInfo(t *testing.T) {
	path := writeFile(t, asf.MuxerConfig{})

	var out bytes.Buffer
	if err := runInfo(&out, path, demux.Options{}); err != nil {
		t.Fatalf("runInfo failed: %v", err)
	}

	var info api.InfoResponse
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("Invalid JSON: %v\n%s", err, out.String())
	}
	if len(info.Tracks) != 2 || !info.Container.Seekable {
		t.Errorf("Unexpected info %+v", info)
	}
	if info.Container.PacketSize != asf.DefaultPacketSize {
		t.Errorf("Expected packet size %d, got %d", asf.DefaultPacketSize, info.Container.PacketSize)
	}
}

func TestRunDump(t *testing.T) {
	path := writeFile(t, asf.MuxerConfig{NoIndex: true})

	var out bytes.Buffer
	if err := runDump(&out, path, demux.Options{}, 1, 0, nil); err != nil {
		t.Fatalf("runDump failed: %v", err)
	}
	text := out.String()
	if got := strings.Count(text, "time="); got != 15 {
		t.Errorf("Expected 15 video samples, got %d\n%s", got, text)
	}
	if !strings.Contains(text, "end of stream") {
		t.Error("Expected end of stream marker")
	}

	// 인덱스가 없으면 탐색 불가
	err := runDump(&out, path, demux.Options{}, 1, 1, demux.SeekTo(1000000, demux.SeekPreviousSync))
	if !errors.Is(err, demux.ErrSeekUnsupported) {
		t.Errorf("Expected seek error, got %v", err)
	}
}
