package asf

// 객체 크기 상수
const (
	ObjectHeaderSize      = 24 // GUID(16) + 크기(8)
	HeaderObjectPrefix    = 30 // 객체 헤더 + 하위 객체 수(4) + 예약(2)
	DataObjectHeaderSize  = 50 // 객체 헤더 + File ID(16) + 패킷 수(8) + 예약(2)
	SimpleIndexHeaderSize = 56 // 객체 헤더 + File ID(16) + 간격(8) + 최대 패킷 수(4) + 엔트리 수(4)
	SimpleIndexEntrySize  = 6  // 패킷 번호(4) + 패킷 수(2)

	filePropertiesSize   = 104
	streamPropertiesMin  = 78
	extStreamPropsMin    = 88
	headerExtensionMin   = 46
	waveFormatExMin      = 18
	videoTypeSpecificMin = 11
	bitmapInfoHeaderSize = 40
)

// File Properties 플래그
const (
	FilePropertyBroadcast = 0x01
	FilePropertySeekable  = 0x02
)

// Stream Properties 플래그
const (
	streamNumberMask     = 0x7F
	streamEncryptedFlag  = 0x8000
	payloadKeyframeFlag  = 0x80
	payloadStreamNumMask = 0x7F
)

// 길이 타입 (2비트 필드)
const (
	lengthTypeNone  = 0
	lengthTypeByte  = 1
	lengthTypeWord  = 2
	lengthTypeDWord = 3
)

// StreamKind 스트림 종류
type StreamKind uint8

const (
	StreamKindUnknown StreamKind = iota
	StreamKindAudio
	StreamKindVideo
)

func (k StreamKind) String() string {
	switch k {
	case StreamKindAudio:
		return "audio"
	case StreamKindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// AudioInfo WAVEFORMATEX 기반 오디오 스트림 정보
type AudioInfo struct {
	CodecID        uint16
	Channels       uint16
	SampleRate     uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
}

// VideoInfo BITMAPINFOHEADER 기반 비디오 스트림 정보
type VideoInfo struct {
	Width        uint32
	Height       uint32
	FourCC       uint32
	BitsPerPixel uint16
}

// StreamInfo 스트림 디스크립터
type StreamInfo struct {
	Number        uint8      // 스트림 번호 (1-127)
	Kind          StreamKind // 오디오/비디오
	Encrypted     bool       // Encrypted Content Flag
	TimeOffset    uint64     // 100ns 단위
	Audio         *AudioInfo // Kind == StreamKindAudio 일 때
	Video         *VideoInfo // Kind == StreamKindVideo 일 때
	CodecData     []byte     // 코덱별 설정 데이터 (없을 수 있음)
	MaxObjectSize uint32     // Extended Stream Properties 에서 (없으면 0)
}

// HeaderInfo 헤더 객체 파싱 결과
type HeaderInfo struct {
	FileID        GUID
	FileSize      uint64
	PacketCount   uint64
	PlayDuration  uint64 // 100ns 단위 (preroll 포함)
	Duration      uint64 // 100ns 단위 (preroll 제외)
	Preroll       uint64 // ms 단위
	Flags         uint32
	PacketSize    uint32
	MaxBitrate    uint32
	MaxObjectSize uint32 // 모든 스트림 중 최대값
	Streams       []StreamInfo
}

// Seekable reports whether the file properties object marks the file seekable.
func (h *HeaderInfo) Seekable() bool {
	return h.Flags&FilePropertySeekable != 0
}

// Broadcast reports whether the file is a live broadcast.
func (h *HeaderInfo) Broadcast() bool {
	return h.Flags&FilePropertyBroadcast != 0
}

// HasAudio 오디오 스트림 존재 여부
func (h *HeaderInfo) HasAudio() bool {
	for _, s := range h.Streams {
		if s.Kind == StreamKindAudio {
			return true
		}
	}
	return false
}

// HasVideo 비디오 스트림 존재 여부
func (h *HeaderInfo) HasVideo() bool {
	for _, s := range h.Streams {
		if s.Kind == StreamKindVideo {
			return true
		}
	}
	return false
}

// Stream 스트림 번호로 디스크립터 조회
func (h *HeaderInfo) Stream(number uint8) (*StreamInfo, bool) {
	for i := range h.Streams {
		if h.Streams[i].Number == number {
			return &h.Streams[i], true
		}
	}
	return nil, false
}

// DataObjectHeader 데이터 객체 헤더
type DataObjectHeader struct {
	Size        uint64 // 데이터 객체 전체 크기 (헤더 포함)
	FileID      GUID
	PacketCount uint64
}

// Payload 데이터 패킷 안의 페이로드 하나
//
// Data는 패킷 버퍼를 그대로 가리키므로 패킷 처리가 끝나면 유효하지 않다.
type Payload struct {
	StreamNumber     uint8
	ObjectNumber     uint32
	ObjectLength     uint32 // 미디어 객체 전체 길이
	Offset           uint32 // 미디어 객체 내 오프셋
	Keyframe         bool
	PresentationTime uint32 // ms 단위 (preroll 제외)
	Data             []byte
}

// SimpleIndexEntry 단순 인덱스 엔트리
type SimpleIndexEntry struct {
	PacketNumber uint32
	PacketCount  uint16
}

// SimpleIndex 단순 인덱스 객체
type SimpleIndex struct {
	FileID         GUID
	Interval       uint64 // 엔트리 시간 간격 (100ns 단위)
	MaxPacketCount uint32
	Entries        []SimpleIndexEntry
}
