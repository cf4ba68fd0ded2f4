// Package demux는 ASF 데이터 패킷을 트랙별 샘플 버퍼로 분리합니다.
//
// 고정 크기 패킷을 순서대로 읽어 페이로드를 트랙으로 보내고, 여러 페이로드에
// 걸친 객체를 재조립하며, 단순 인덱스로 시간 탐색을 처리합니다.
package demux

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"asfdemux/pkg/asf"
	"asfdemux/pkg/media"
	"asfdemux/pkg/utils"
)

// Extractor ASF 컨테이너 하나에 대한 추출기
//
// 트랙마다 다른 고루틴에서 Read 를 동시에 호출할 수 있다.
type Extractor struct {
	src    io.ReaderAt
	closer io.Closer
	parser ContainerParser
	opts   Options

	header *asf.HeaderInfo
	format media.ContainerFormat
	tracks *trackRegistry

	// 패킷 영역 상태 (mu 로 보호)
	mu         sync.Mutex
	begin      uint64
	end        uint64
	cursor     uint64
	packetSize uint32
	packet     []byte
	seekable   bool
	closed     bool

	stats counters
}

// OpenFile ASF 파일을 열어 추출기 생성 (Close 시 파일도 닫힘)
func OpenFile(path string, opts Options) (*Extractor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	e, err := Open(f, asf.NewParser(), opts)
	if err != nil {
		utils.CloseWithLog(f, path)
		return nil, err
	}
	e.closer = f
	return e, nil
}

// Open 바이트 소스에서 헤더, 데이터 객체, 인덱스를 읽어 추출기 생성
func Open(src io.ReaderAt, parser ContainerParser, opts Options) (*Extractor, error) {
	e := &Extractor{
		src:    src,
		parser: parser,
		opts:   opts.withDefaults(),
		tracks: newTrackRegistry(),
	}
	if err := e.initialize(); err != nil {
		return nil, err
	}
	return e, nil
}

// readFull offset 에서 len(buf) 바이트를 읽음, 모자라면 ErrIO
func (e *Extractor) readFull(buf []byte, offset uint64, what string) error {
	n, err := e.src.ReadAt(buf, int64(offset))
	if n == len(buf) {
		return nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %s at offset %d: read %d of %d bytes: %v", ErrIO, what, offset, n, len(buf), err)
}

func (e *Extractor) initialize() error {
	// 헤더 객체는 첫 번째 필수 객체
	objHeader := make([]byte, asf.ObjectHeaderSize)
	if err := e.readFull(objHeader, 0, "header object"); err != nil {
		return err
	}
	if !asf.IsHeaderObject(objHeader) {
		return fmt.Errorf("%w: not an ASF header object", ErrMalformed)
	}
	_, headerSize, err := asf.ParseObjectHeader(objHeader)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if headerSize > e.opts.MaxHeaderObjectSize {
		return fmt.Errorf("%w: header object size %d exceeds limit %d", ErrMalformed, headerSize, e.opts.MaxHeaderObjectSize)
	}

	headerData := make([]byte, headerSize)
	if err := e.readFull(headerData, 0, "header object"); err != nil {
		return err
	}
	header, err := e.parser.ParseHeader(headerData)
	if err != nil {
		slog.Error("Failed to parse header object", "err", err)
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	e.header = header

	dataHeader := make([]byte, asf.DataObjectHeaderSize)
	if err := e.readFull(dataHeader, headerSize, "data object header"); err != nil {
		return err
	}
	dataObject, err := e.parser.ParseDataObjectHeader(dataHeader)
	if err != nil {
		slog.Error("Failed to parse data object header", "err", err)
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if header.PacketSize == 0 {
		return fmt.Errorf("%w: zero data packet size", ErrMalformed)
	}
	e.begin = headerSize + asf.DataObjectHeaderSize
	e.end = headerSize + dataObject.Size
	e.cursor = e.begin
	e.packetSize = header.PacketSize
	e.packet = make([]byte, e.packetSize)

	if header.Seekable() {
		e.locateIndex()
	}

	if !header.HasAudio() && !header.HasVideo() {
		slog.Error("Content has neither audio nor video")
		return ErrUnsupported
	}

	e.format = media.ContainerFormat{
		MIME:       asf.MIMEContainerASF,
		DurationUs: int64(header.Duration / 10),
		Seekable:   e.seekable,
		PacketSize: int(header.PacketSize),
		Bitrate:    int(header.MaxBitrate),
	}
	e.setupTracks()

	slog.Info("ASF container opened",
		"tracks", e.tracks.count(),
		"durationUs", e.format.DurationUs,
		"packetSize", e.packetSize,
		"packets", (e.end-e.begin)/uint64(e.packetSize),
		"seekable", e.seekable)
	return nil
}

// locateIndex 데이터 객체 뒤의 객체들에서 단순 인덱스를 찾아 로드
// 실패하면 탐색 불가로 남을 뿐 에러가 아니다.
func (e *Extractor) locateIndex() {
	offset := e.end
	objHeader := make([]byte, asf.ObjectHeaderSize)
	for {
		if err := e.readFull(objHeader, offset, "object header"); err != nil {
			break
		}
		_, size, err := asf.ParseObjectHeader(objHeader)
		if err != nil {
			slog.Debug("Invalid object after data object", "offset", offset, "err", err)
			break
		}
		if !asf.IsSimpleIndexObject(objHeader) {
			if offset+size < offset {
				break
			}
			offset += size
			continue
		}

		if size > e.opts.MaxIndexObjectSize {
			slog.Warn("Simple index too large, seeking disabled", "size", size, "limit", e.opts.MaxIndexObjectSize)
			break
		}
		data := make([]byte, size)
		if err := e.readFull(data, offset, "simple index"); err != nil {
			slog.Warn("Failed to read simple index, seeking disabled", "err", err)
			break
		}
		if _, err := e.parser.ParseSimpleIndex(data); err != nil {
			slog.Warn("Failed to parse simple index, seeking disabled", "err", err)
			break
		}

		slog.Debug("Simple index found, seeking is supported", "offset", offset, "size", size)
		e.seekable = true
		break
	}
}

// setupTracks 스트림 디스크립터로 트랙 레지스트리 구성
func (e *Extractor) setupTracks() {
	durationUs := int64(e.header.Duration / 10)

	for i := range e.header.Streams {
		s := &e.header.Streams[i]
		f := media.Format{
			StreamNumber: s.Number,
			Encrypted:    s.Encrypted,
			CodecConfig:  s.CodecData,
			DurationUs:   durationUs,
		}

		switch {
		case s.Kind == asf.StreamKindAudio && s.Audio != nil:
			f.Type = media.TypeAudio
			f.MIME = asf.AudioMIME(s.Audio.CodecID)
			f.CodecID = s.Audio.CodecID
			f.Channels = int(s.Audio.Channels)
			f.SampleRate = int(s.Audio.SampleRate)
			f.BitsPerSample = int(s.Audio.BitsPerSample)
			f.MaxInputSize = int(e.packetSize)
		case s.Kind == asf.StreamKindVideo && s.Video != nil:
			f.Type = media.TypeVideo
			f.MIME = asf.VideoMIME(s.Video.FourCC)
			f.FourCC = asf.FourCCString(s.Video.FourCC)
			f.Width = int(s.Video.Width)
			f.Height = int(s.Video.Height)
			f.ThumbnailTimeUs = durationUs / 2
			maxSize := s.MaxObjectSize
			if maxSize == 0 {
				maxSize = e.header.MaxObjectSize
			}
			if maxSize == 0 {
				// 패킷 크기로 추정
				maxSize = 10 * e.packetSize
			}
			f.MaxInputSize = int(maxSize)
		default:
			slog.Debug("Skipping non audio/video stream", "stream", s.Number, "kind", s.Kind)
			continue
		}

		e.tracks.add(&track{
			streamNumber: s.Number,
			encrypted:    s.Encrypted,
			format:       f,
		})
		slog.Debug("Track added",
			"index", e.tracks.count()-1,
			"stream", s.Number,
			"mime", f.MIME,
			"encrypted", s.Encrypted)
	}
}

// Metadata 컨테이너 수준 메타데이터
func (e *Extractor) Metadata() media.ContainerFormat {
	return e.format
}

// Header 파싱된 헤더 정보
func (e *Extractor) Header() *asf.HeaderInfo {
	return e.header
}

// CountTracks 오디오/비디오 트랙 수
func (e *Extractor) CountTracks() int {
	return e.tracks.count()
}

// TrackFormat index 번째 트랙의 디스크립터
func (e *Extractor) TrackFormat(index int) (media.Format, error) {
	t, ok := e.tracks.byIndex(index)
	if !ok {
		return media.Format{}, fmt.Errorf("%w: index %d", ErrInvalidTrack, index)
	}
	return t.format, nil
}

// Track index 번째 트랙을 활성화하고 Source 반환
// 활성화되지 않은 트랙의 페이로드는 버퍼를 만들지 않고 건너뛴다.
func (e *Extractor) Track(index int) (*Source, error) {
	t, ok := e.tracks.byIndex(index)
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrInvalidTrack, index)
	}
	t.active.Store(true)
	return &Source{extractor: e, track: t}, nil
}

// Read index 번째 트랙의 다음 샘플 (opts 가 있으면 먼저 탐색)
func (e *Extractor) Read(index int, opts *ReadOptions) (*media.Buffer, error) {
	t, ok := e.tracks.byIndex(index)
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrInvalidTrack, index)
	}
	if !t.active.Load() {
		return nil, fmt.Errorf("%w: track %d is not active", ErrInvalidTrack, index)
	}

	if opts != nil {
		if err := e.seek(t, opts); err != nil {
			return nil, err
		}
	}
	return e.read(t)
}

// read 큐가 비어 있으면 패킷을 하나씩 읽어 큐를 채운다
// 트랙 락은 큐를 볼 때만 잡고 패킷을 읽는 동안에는 잡지 않는다.
func (e *Extractor) read(t *track) (*media.Buffer, error) {
	for {
		if buf, ok := t.pop(); ok {
			return buf, nil
		}
		if err := e.demuxNextPacket(); err != nil {
			return nil, err
		}
	}
}

// Seekable 단순 인덱스가 로드되어 시간 탐색이 가능한지
func (e *Extractor) Seekable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seekable
}

// Stats 누적 통계
func (e *Extractor) Stats() Stats {
	e.mu.Lock()
	cursor, end, packetSize := e.cursor, e.end, uint64(e.packetSize)
	e.mu.Unlock()

	s := Stats{
		PacketsRead:     e.stats.packetsRead.Load(),
		PacketsDropped:  e.stats.packetsDropped.Load(),
		PayloadsSkipped: e.stats.payloadsSkipped.Load(),
		PayloadsDropped: e.stats.payloadsDropped.Load(),
		BuffersQueued:   e.stats.buffersQueued.Load(),
		Seeks:           e.stats.seeks.Load(),
		SeeksCoalesced:  e.stats.seeksCoalesced.Load(),
		CursorOffset:    cursor,
	}
	if packetSize > 0 && end > cursor {
		s.PacketsRemaining = (end - cursor) / packetSize
	}
	return s
}

// Close 대기 중인 모든 버퍼를 해제
// 이후 Read 는 ErrClosed 를 반환한다.
func (e *Extractor) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	for _, t := range e.tracks.tracks {
		t.flush(0)
	}
	e.packet = nil
	e.mu.Unlock()

	if e.closer != nil {
		return e.closer.Close()
	}
	return nil
}
