package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"asfdemux/pkg/asf"
	"asfdemux/pkg/demux"
	"asfdemux/pkg/media"
)

// writeSample 2초 길이 오디오/비디오 ASF 파일을 dir 에 기록
func writeSample(t *testing.T, dir, name string) {
	t.Helper()
	m := asf.NewMuxer(asf.MuxerConfig{PacketSize: 1024})
	streams := []asf.StreamInfo{
		{Number: 1, Kind: asf.StreamKindAudio, Audio: &asf.AudioInfo{CodecID: asf.CodecIDWMAv2, Channels: 2, SampleRate: 48000, BitsPerSample: 16}},
		{Number: 2, Kind: asf.StreamKindVideo, Video: &asf.VideoInfo{Width: 320, Height: 240, FourCC: asf.FourCC("WMV3")}},
	}
	for _, s := range streams {
		if err := m.AddStream(s); err != nil {
			t.Fatalf("AddStream failed: %v", err)
		}
	}
	for ms := uint32(0); ms < 2000; ms += 100 {
		if err := m.WriteObject(2, ms, ms%1000 == 0, make([]byte, 1500)); err != nil {
			t.Fatalf("WriteObject failed: %v", err)
		}
		if err := m.WriteObject(1, ms, true, make([]byte, 200)); err != nil {
			t.Fatalf("WriteObject failed: %v", err)
		}
	}

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f.Close()
	if _, err := m.WriteTo(f); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	writeSample(t, dir, "sample.asf")
	if err := os.WriteFile(filepath.Join(dir, "garbage.asf"), make([]byte, 64), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	s := NewServer("0", dir, time.Minute, demux.Options{})
	t.Cleanup(func() { s.extractors.flush() })
	return s
}

func get(t *testing.T, s *Server, method, path string, out interface{}) int {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	s.GetRouter().ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("Failed to decode %s: %v", w.Body.String(), err)
		}
	}
	return w.Code
}

func TestInfoHandler(t *testing.T) {
	s := newTestServer(t)

	var resp InfoResponse
	if code := get(t, s, http.MethodGet, "/api/v1/files/sample.asf", &resp); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if resp.Name != "sample.asf" || resp.Container.MIME != asf.MIMEContainerASF {
		t.Errorf("Unexpected container %+v", resp)
	}
	if !resp.Container.Seekable {
		t.Error("Expected seekable container")
	}
	if len(resp.Tracks) != 2 {
		t.Fatalf("Expected 2 tracks, got %d", len(resp.Tracks))
	}
	if resp.Tracks[0].Type != media.TypeAudio.String() || resp.Tracks[0].SampleRate != 48000 {
		t.Errorf("Unexpected audio track %+v", resp.Tracks[0])
	}
	if resp.Tracks[1].Type != media.TypeVideo.String() || resp.Tracks[1].MIME != asf.MIMEVideoWMV {
		t.Errorf("Unexpected video track %+v", resp.Tracks[1])
	}
	if s.extractors.count() != 1 {
		t.Errorf("Expected 1 cached extractor, got %d", s.extractors.count())
	}
}

func TestInfoHandlerErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"Missing file", "/api/v1/files/missing.asf", http.StatusNotFound},
		{"Traversal", "/api/v1/files/..%2F..%2Fetc%2Fpasswd", http.StatusNotFound},
		{"Not ASF", "/api/v1/files/garbage.asf", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := get(t, s, http.MethodGet, tt.path, nil); code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, code)
			}
		})
	}
}

func TestResolveStaysInRoot(t *testing.T) {
	c := newExtractorCache("/media", time.Minute, demux.Options{})

	tests := []struct {
		name string
		want string
	}{
		{"sample.asf", "/media/sample.asf"},
		{"../../etc/passwd", "/media/passwd"},
		{"/abs/clip.asf", "/media/clip.asf"},
	}
	for _, tt := range tests {
		got, err := c.resolve(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("resolve(%q): expected %s, got %s (%v)", tt.name, tt.want, got, err)
		}
	}

	for _, name := range []string{"", "..", "/"} {
		if _, err := c.resolve(name); err == nil {
			t.Errorf("resolve(%q): expected error", name)
		}
	}
}

func TestSamplesHandler(t *testing.T) {
	s := newTestServer(t)

	var resp SamplesResponse
	code := get(t, s, http.MethodGet, "/api/v1/files/sample.asf/tracks/1/samples?count=5", &resp)
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if len(resp.Samples) != 5 || resp.EndOfStream {
		t.Fatalf("Expected 5 samples, got %+v", resp)
	}
	for i, sample := range resp.Samples {
		if sample.TimeUs != int64(i)*100000 || sample.Size != 1500 {
			t.Errorf("Sample %d: unexpected %+v", i, sample)
		}
	}

	// 다음 요청은 이어서 읽는다
	resp = SamplesResponse{}
	get(t, s, http.MethodGet, "/api/v1/files/sample.asf/tracks/1/samples?count=1", &resp)
	if len(resp.Samples) != 1 || resp.Samples[0].TimeUs != 500000 {
		t.Errorf("Expected continuation at 500000, got %+v", resp.Samples)
	}

	// 탐색
	resp = SamplesResponse{}
	get(t, s, http.MethodGet, "/api/v1/files/sample.asf/tracks/1/samples?count=1&seek_us=1500000&mode=previous_sync", &resp)
	if len(resp.Samples) != 1 || resp.Samples[0].TimeUs != 1000000 || !resp.Samples[0].Sync {
		t.Errorf("Expected keyframe at 1000000, got %+v", resp.Samples)
	}

	// 끝까지
	resp = SamplesResponse{}
	get(t, s, http.MethodGet, "/api/v1/files/sample.asf/tracks/1/samples?count=100", &resp)
	if !resp.EndOfStream || len(resp.Samples) != 9 {
		t.Errorf("Expected 9 samples then end of stream, got %d / %v", len(resp.Samples), resp.EndOfStream)
	}

	var stats demux.Stats
	if code := get(t, s, http.MethodGet, "/api/v1/files/sample.asf/stats", &stats); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if stats.Seeks != 1 || stats.PacketsRemaining != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestSamplesHandlerBadRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"Bad track", "/api/v1/files/sample.asf/tracks/x/samples", http.StatusBadRequest},
		{"Unknown track", "/api/v1/files/sample.asf/tracks/7/samples", http.StatusNotFound},
		{"Zero count", "/api/v1/files/sample.asf/tracks/0/samples?count=0", http.StatusBadRequest},
		{"Huge count", "/api/v1/files/sample.asf/tracks/0/samples?count=100000", http.StatusBadRequest},
		{"Bad seek", "/api/v1/files/sample.asf/tracks/0/samples?seek_us=abc", http.StatusBadRequest},
		{"Bad mode", "/api/v1/files/sample.asf/tracks/0/samples?seek_us=0&mode=sideways", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := get(t, s, http.MethodGet, tt.path, nil); code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, code)
			}
		})
	}
}

func TestCloseHandler(t *testing.T) {
	s := newTestServer(t)
	before := media.LiveAllocations()

	get(t, s, http.MethodGet, "/api/v1/files/sample.asf/tracks/0/samples?count=1", nil)
	get(t, s, http.MethodGet, "/api/v1/files/sample.asf/tracks/1/samples?count=1", nil)

	if code := get(t, s, http.MethodDelete, "/api/v1/files/sample.asf", nil); code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", code)
	}
	if s.extractors.count() != 0 {
		t.Errorf("Expected empty cache, got %d", s.extractors.count())
	}
	if got := media.LiveAllocations() - before; got != 0 {
		t.Errorf("Expected queued buffers released on close, %d live", got)
	}
	if code := get(t, s, http.MethodDelete, "/api/v1/files/sample.asf", nil); code != http.StatusNotFound {
		t.Errorf("Expected 404 for closed extractor, got %d", code)
	}

	var health map[string]interface{}
	get(t, s, http.MethodGet, "/api/v1/health", &health)
	if health["status"] != "ok" {
		t.Errorf("Unexpected health %v", health)
	}
}
