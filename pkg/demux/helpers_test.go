package demux

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync/atomic"
	"testing"

	"asfdemux/pkg/asf"
	"asfdemux/pkg/media"
)

const (
	fakeHeaderSize = 30
	fakePacketSize = 64
	secondTicks    = 10000000
)

var errFakeMalformed = errors.New("fake malformed packet")

// fakeParser 패킷 번호(패킷 앞 4바이트)로 미리 정한 페이로드를 돌려주는 파서
type fakeParser struct {
	header    *asf.HeaderInfo
	headerErr error
	packets   [][]asf.Payload
	malformed map[uint32]bool

	// 1초 간격 인덱스: 엔트리 i 는 i 초의 패킷 번호
	index       []uint32
	indexLoaded bool
	seekCalls   atomic.Int32
}

func (f *fakeParser) ParseHeader(data []byte) (*asf.HeaderInfo, error) {
	if f.headerErr != nil {
		return nil, f.headerErr
	}
	return f.header, nil
}

func (f *fakeParser) ParseDataObjectHeader(data []byte) (*asf.DataObjectHeader, error) {
	return &asf.DataObjectHeader{
		Size:        binary.LittleEndian.Uint64(data[16:24]),
		PacketCount: uint64(len(f.packets)),
	}, nil
}

func (f *fakeParser) ParseSimpleIndex(data []byte) (*asf.SimpleIndex, error) {
	f.indexLoaded = true
	return &asf.SimpleIndex{Interval: secondTicks}, nil
}

func (f *fakeParser) ParseDataPacket(data []byte) ([]asf.Payload, error) {
	n := binary.LittleEndian.Uint32(data[0:4])
	if f.malformed[n] {
		return nil, errFakeMalformed
	}
	return f.packets[n], nil
}

func (f *fakeParser) TimeToPacket(t uint64, nextSync bool) (uint32, uint64, error) {
	f.seekCalls.Add(1)
	if !f.indexLoaded {
		return 0, 0, asf.ErrIndexNotLoaded
	}
	i := t / secondTicks
	if nextSync && t%secondTicks != 0 {
		i++
	}
	if i >= uint64(len(f.index)) {
		return 0, 0, asf.ErrSeekOutOfRange
	}
	return f.index[i], i * secondTicks, nil
}

// fixture 가짜 컨테이너 구성
type fixture struct {
	streams   []asf.StreamInfo
	packets   [][]asf.Payload
	malformed map[uint32]bool
	seekable  bool     // File Properties seekable 플래그
	index     []uint32 // nil 이면 인덱스 객체 없음
	truncate  int      // 파일 끝에서 잘라낼 바이트 수
}

// bytes 헤더(30) + 데이터 객체 헤더(50) + 패킷 + (다른 객체 + 인덱스 객체)
func (fx fixture) bytes() []byte {
	var buf bytes.Buffer

	header := make([]byte, fakeHeaderSize)
	copy(header, asf.GUIDHeaderObject[:])
	binary.LittleEndian.PutUint64(header[16:24], fakeHeaderSize)
	buf.Write(header)

	dataHeader := make([]byte, asf.DataObjectHeaderSize)
	copy(dataHeader, asf.GUIDDataObject[:])
	binary.LittleEndian.PutUint64(dataHeader[16:24], uint64(asf.DataObjectHeaderSize+len(fx.packets)*fakePacketSize))
	buf.Write(dataHeader)

	for i := range fx.packets {
		packet := make([]byte, fakePacketSize)
		binary.LittleEndian.PutUint32(packet[0:4], uint32(i))
		buf.Write(packet)
	}

	if fx.index != nil {
		other := make([]byte, asf.ObjectHeaderSize+8)
		copy(other, asf.GUIDIndexObject[:])
		binary.LittleEndian.PutUint64(other[16:24], uint64(len(other)))
		buf.Write(other)

		index := make([]byte, asf.SimpleIndexHeaderSize)
		copy(index, asf.GUIDSimpleIndexObject[:])
		binary.LittleEndian.PutUint64(index[16:24], uint64(len(index)))
		buf.Write(index)
	}

	data := buf.Bytes()
	return data[:len(data)-fx.truncate]
}

func (fx fixture) parser() *fakeParser {
	h := &asf.HeaderInfo{
		PacketSize: fakePacketSize,
		Duration:   uint64(len(fx.index)) * secondTicks,
		Streams:    fx.streams,
	}
	if fx.seekable {
		h.Flags |= asf.FilePropertySeekable
	}
	return &fakeParser{
		header:    h,
		packets:   fx.packets,
		malformed: fx.malformed,
		index:     fx.index,
	}
}

// open 가짜 컨테이너로 추출기를 열고 모든 트랙을 활성화
func (fx fixture) open(t *testing.T, opts Options) (*Extractor, *fakeParser) {
	t.Helper()
	p := fx.parser()
	e, err := Open(bytes.NewReader(fx.bytes()), p, opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	for i := 0; i < e.CountTracks(); i++ {
		if _, err := e.Track(i); err != nil {
			t.Fatalf("Track(%d) failed: %v", i, err)
		}
	}
	t.Cleanup(func() { _ = e.Close() })
	return e, p
}

func audioStream(number uint8, encrypted bool) asf.StreamInfo {
	return asf.StreamInfo{
		Number:    number,
		Kind:      asf.StreamKindAudio,
		Encrypted: encrypted,
		Audio:     &asf.AudioInfo{CodecID: asf.CodecIDWMAv2, Channels: 2, SampleRate: 44100, BitsPerSample: 16},
	}
}

func videoStream(number uint8, encrypted bool) asf.StreamInfo {
	return asf.StreamInfo{
		Number:    number,
		Kind:      asf.StreamKindVideo,
		Encrypted: encrypted,
		Video:     &asf.VideoInfo{Width: 640, Height: 480, FourCC: asf.FourCC("WVC1")},
	}
}

// whole 한 페이로드에 담긴 완전한 객체
func whole(stream uint8, object uint32, ptsMs uint32, key bool, data []byte) asf.Payload {
	return asf.Payload{
		StreamNumber:     stream,
		ObjectNumber:     object,
		ObjectLength:     uint32(len(data)),
		Keyframe:         key,
		PresentationTime: ptsMs,
		Data:             data,
	}
}

// fragment objectLength 길이 객체의 offset 위치 조각
func fragment(stream uint8, object uint32, objectLength, offset uint32, ptsMs uint32, data []byte) asf.Payload {
	return asf.Payload{
		StreamNumber:     stream,
		ObjectNumber:     object,
		ObjectLength:     objectLength,
		Offset:           offset,
		PresentationTime: ptsMs,
		Data:             data,
	}
}

// pattern 길이 n 의 식별 가능한 바이트열
func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}

// readAll 스트림 끝까지 읽어 버퍼를 모두 반환
func readAll(t *testing.T, e *Extractor, index int) []*media.Buffer {
	t.Helper()
	var out []*media.Buffer
	for {
		buf, err := e.Read(index, nil)
		if errors.Is(err, ErrEndOfStream) {
			return out
		}
		if err != nil {
			t.Fatalf("Read(%d) failed: %v", index, err)
		}
		out = append(out, buf)
	}
}

func releaseAll(bufs []*media.Buffer) {
	for _, b := range bufs {
		b.Release()
	}
}

// muxedFile 1초 GOP 비디오와 오디오를 가진 실제 ASF 파일
//
// 비디오는 200ms 간격, 매 1초마다 키프레임이며 2000 바이트라 여러 패킷에 걸친다.
// 오디오는 100ms 간격 300 바이트.
func muxedFile(t *testing.T, seconds int, preroll uint64, encryptedVideo bool) []byte {
	t.Helper()
	m := asf.NewMuxer(asf.MuxerConfig{PacketSize: 1024, Preroll: preroll})
	if err := m.AddStream(audioStream(1, false)); err != nil {
		t.Fatalf("AddStream failed: %v", err)
	}
	if err := m.AddStream(videoStream(2, encryptedVideo)); err != nil {
		t.Fatalf("AddStream failed: %v", err)
	}

	for ms := 0; ms < seconds*1000; ms += 100 {
		if ms%200 == 0 {
			if err := m.WriteObject(2, uint32(ms), ms%1000 == 0, pattern(2000, byte(ms/100))); err != nil {
				t.Fatalf("WriteObject video failed: %v", err)
			}
		}
		if err := m.WriteObject(1, uint32(ms), true, pattern(300, byte(ms/100)+0x80)); err != nil {
			t.Fatalf("WriteObject audio failed: %v", err)
		}
	}

	data, err := m.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	return data
}
