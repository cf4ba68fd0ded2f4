package demux

import (
	"bytes"
	"errors"
	"testing"

	"asfdemux/pkg/asf"
)

// secondsFixture 초마다 오디오/비디오 객체 하나씩 담은 패킷 n 개와 1초 인덱스
func secondsFixture(n int) fixture {
	fx := fixture{
		streams:  []asf.StreamInfo{audioStream(1, false), videoStream(2, false)},
		seekable: true,
	}
	for i := 0; i < n; i++ {
		ms := uint32(i * 1000)
		fx.packets = append(fx.packets, []asf.Payload{
			whole(1, uint32(i), ms, true, pattern(10, byte(i))),
			whole(2, uint32(i), ms, true, pattern(20, byte(i))),
		})
		fx.index = append(fx.index, uint32(i))
	}
	return fx
}

func TestSeekOnceAcrossTracks(t *testing.T) {
	e, p := secondsFixture(4).open(t, Options{})
	if !e.Seekable() {
		t.Fatal("Expected seekable extractor")
	}

	buf, err := e.Read(0, nil)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	buf.Release()
	if n := e.tracks.tracks[1].queueLen(); n != 1 {
		t.Fatalf("Expected 1 queued video buffer, got %d", n)
	}

	if err := e.seek(e.tracks.tracks[0], SeekTo(2000000, SeekPreviousSync)); err != nil {
		t.Fatalf("seek failed: %v", err)
	}
	for i, tr := range e.tracks.tracks {
		if n := tr.queueLen(); n != 0 {
			t.Errorf("Track %d: expected empty queue after seek, got %d", i, n)
		}
	}
	if calls := p.seekCalls.Load(); calls != 1 {
		t.Fatalf("Expected 1 index lookup, got %d", calls)
	}

	// 다른 트랙의 같은 탐색 요청은 표시만 지운다
	buf, err = e.Read(1, SeekTo(2000000, SeekPreviousSync))
	if err != nil {
		t.Fatalf("Read video failed: %v", err)
	}
	if buf.Meta().TimeUs != 2000000 {
		t.Errorf("Expected video at 2000000, got %d", buf.Meta().TimeUs)
	}
	buf.Release()
	if calls := p.seekCalls.Load(); calls != 1 {
		t.Errorf("Coalesced seek should not hit the index, got %d lookups", calls)
	}

	buf, err = e.Read(0, nil)
	if err != nil {
		t.Fatalf("Read audio failed: %v", err)
	}
	if buf.Meta().TimeUs != 2000000 {
		t.Errorf("Expected audio at 2000000, got %d", buf.Meta().TimeUs)
	}
	buf.Release()

	// 표시가 지워진 뒤의 요청은 다시 실제 탐색
	buf, err = e.Read(1, SeekTo(0, SeekPreviousSync))
	if err != nil {
		t.Fatalf("Second seek failed: %v", err)
	}
	if buf.Meta().TimeUs != 0 {
		t.Errorf("Expected video at 0, got %d", buf.Meta().TimeUs)
	}
	buf.Release()

	s := e.Stats()
	if s.Seeks != 2 || s.SeeksCoalesced != 1 {
		t.Errorf("Expected 2 seeks / 1 coalesced, got %d / %d", s.Seeks, s.SeeksCoalesced)
	}
	if p.seekCalls.Load() != 2 {
		t.Errorf("Expected 2 index lookups, got %d", p.seekCalls.Load())
	}
}

func TestSeekModes(t *testing.T) {
	tests := []struct {
		name   string
		timeUs int64
		mode   SeekMode
		want   int64
	}{
		{"Previous sync on boundary", 1000000, SeekPreviousSync, 1000000},
		{"Previous sync between", 1500000, SeekPreviousSync, 1000000},
		{"Next sync between", 1500000, SeekNextSync, 2000000},
		{"Next sync on boundary", 2000000, SeekNextSync, 2000000},
		{"Closest sync", 2500000, SeekClosestSync, 2000000},
		{"Closest", 300000, SeekClosest, 0},
		{"Negative time", -5, SeekPreviousSync, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := secondsFixture(4).open(t, Options{})
			buf, err := e.Read(1, SeekTo(tt.timeUs, tt.mode))
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			defer buf.Release()
			if got := buf.Meta().TimeUs; got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestSeekSkipsObjectsBeforeTarget(t *testing.T) {
	// 2초 인덱스 엔트리가 가리키는 패킷에 2초 이전 객체가 섞여 있다
	fx := fixture{
		streams:  []asf.StreamInfo{audioStream(1, false), videoStream(2, false)},
		seekable: true,
		index:    []uint32{0, 0, 1, 2},
		packets: [][]asf.Payload{
			{whole(1, 0, 0, true, pattern(10, 0)), whole(2, 0, 0, true, pattern(20, 0))},
			{
				whole(2, 1, 1700, false, pattern(20, 1)),
				whole(1, 1, 1900, true, pattern(10, 1)),
				whole(2, 2, 1800, true, pattern(20, 2)),
				whole(1, 2, 2000, true, pattern(10, 2)),
				whole(2, 3, 2000, false, pattern(20, 3)),
			},
			{whole(1, 3, 3000, true, pattern(10, 3)), whole(2, 4, 3000, true, pattern(20, 4))},
		},
	}
	e, _ := fx.open(t, Options{})

	wantAudio := []int64{2000000, 3000000}
	for i, want := range wantAudio {
		var opts *ReadOptions
		if i == 0 {
			opts = SeekTo(2000000, SeekPreviousSync)
		}
		buf, err := e.Read(0, opts)
		if err != nil {
			t.Fatalf("Read audio %d failed: %v", i, err)
		}
		if got := buf.Meta().TimeUs; got != want {
			t.Errorf("Audio %d: expected %d, got %d", i, want, got)
		}
		buf.Release()
	}

	// 인덱스가 가리키는 키프레임은 엔트리 시간보다 앞서도 유지된다
	wantVideo := []struct {
		timeUs int64
		sync   bool
	}{
		{1800000, true},
		{2000000, false},
		{3000000, true},
	}
	for i, want := range wantVideo {
		var opts *ReadOptions
		if i == 0 {
			opts = SeekTo(2000000, SeekPreviousSync)
		}
		buf, err := e.Read(1, opts)
		if err != nil {
			t.Fatalf("Read video %d failed: %v", i, err)
		}
		if m := buf.Meta(); m.TimeUs != want.timeUs || m.IsSync != want.sync {
			t.Errorf("Video %d: expected %d (sync %v), got %+v", i, want.timeUs, want.sync, m)
		}
		buf.Release()
	}

	if s := e.Stats(); s.PayloadsSkipped != 2 || s.PayloadsDropped != 0 {
		t.Errorf("Expected 2 skipped / 0 dropped payloads, got %d / %d", s.PayloadsSkipped, s.PayloadsDropped)
	}
}

func TestSeekUnsupported(t *testing.T) {
	tests := []struct {
		name     string
		seekable bool
		index    []uint32
	}{
		{"No seekable flag", false, []uint32{0, 1}},
		{"No index object", true, nil},
		{"Neither", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := secondsFixture(2)
			fx.seekable = tt.seekable
			fx.index = tt.index
			e, p := fx.open(t, Options{})

			if e.Seekable() || e.Metadata().Seekable {
				t.Error("Expected non-seekable extractor")
			}
			if _, err := e.Read(0, SeekTo(1000000, SeekPreviousSync)); !errors.Is(err, ErrSeekUnsupported) {
				t.Errorf("Expected ErrSeekUnsupported, got %v", err)
			}
			if p.seekCalls.Load() != 0 {
				t.Error("Index should not be consulted")
			}

			// 순차 읽기는 계속 동작
			buf, err := e.Read(0, nil)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			buf.Release()
		})
	}
}

func TestSeekBeyondIndex(t *testing.T) {
	e, _ := secondsFixture(2).open(t, Options{})

	_, err := e.Read(0, SeekTo(5000000, SeekPreviousSync))
	if !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("Expected ErrEndOfStream, got %v", err)
	}

	// 실패한 탐색은 커서를 옮기지 않는다
	buf, err := e.Read(0, nil)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	defer buf.Release()
	if buf.Meta().TimeUs != 0 {
		t.Errorf("Expected first sample, got %d", buf.Meta().TimeUs)
	}
}

func TestSeekPacketBeyondDataObject(t *testing.T) {
	fx := secondsFixture(2)
	fx.index = []uint32{0, 1, 7}
	e, _ := fx.open(t, Options{})

	if _, err := e.Read(0, SeekTo(2000000, SeekPreviousSync)); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("Expected ErrEndOfStream, got %v", err)
	}
}

func TestSeekMuxedFile(t *testing.T) {
	for _, preroll := range []uint64{0, 1000} {
		data := muxedFile(t, 3, preroll, false)
		e, err := Open(bytes.NewReader(data), asf.NewParser(), Options{})
		if err != nil {
			t.Fatalf("preroll %d: Open failed: %v", preroll, err)
		}

		audio, _ := e.Track(0)
		video, _ := e.Track(1)

		// 비디오를 조금 읽어 두고 탐색
		buf, err := video.Read(nil)
		if err != nil {
			t.Fatalf("preroll %d: Read failed: %v", preroll, err)
		}
		buf.Release()

		buf, err = video.Read(SeekTo(1000000, SeekPreviousSync))
		if err != nil {
			t.Fatalf("preroll %d: seek video failed: %v", preroll, err)
		}
		if m := buf.Meta(); m.TimeUs != 1000000 || !m.IsSync {
			t.Errorf("preroll %d: expected keyframe at 1000000, got %+v", preroll, m)
		}
		buf.Release()

		buf, err = audio.Read(SeekTo(1000000, SeekPreviousSync))
		if err != nil {
			t.Fatalf("preroll %d: seek audio failed: %v", preroll, err)
		}
		if buf.Meta().TimeUs != 1000000 {
			t.Errorf("preroll %d: expected audio at 1000000, got %d", preroll, buf.Meta().TimeUs)
		}
		buf.Release()

		if s := e.Stats(); s.Seeks != 1 || s.SeeksCoalesced != 1 {
			t.Errorf("preroll %d: expected 1 seek / 1 coalesced, got %d / %d", preroll, s.Seeks, s.SeeksCoalesced)
		}

		// 탐색 후 비디오는 1초부터 9개 더
		bufs := readAll(t, e, 1)
		if len(bufs) != 9 {
			t.Errorf("preroll %d: expected 9 more video samples, got %d", preroll, len(bufs))
		}
		last := int64(1000000)
		for _, b := range bufs {
			if b.Meta().TimeUs < last {
				t.Errorf("preroll %d: timestamp %d before %d", preroll, b.Meta().TimeUs, last)
			}
			last = b.Meta().TimeUs
		}
		releaseAll(bufs)

		buf, err = video.Read(SeekTo(1100000, SeekNextSync))
		if err != nil {
			t.Fatalf("preroll %d: next sync seek failed: %v", preroll, err)
		}
		if m := buf.Meta(); m.TimeUs != 2000000 || !m.IsSync {
			t.Errorf("preroll %d: expected keyframe at 2000000, got %+v", preroll, m)
		}
		buf.Release()

		if err := e.Close(); err != nil {
			t.Errorf("preroll %d: Close failed: %v", preroll, err)
		}
	}
}
