package media

// Type represents the type of media
type Type uint8

const (
	TypeUnknown Type = iota
	TypeAudio
	TypeVideo
)

func (t Type) String() string {
	switch t {
	case TypeAudio:
		return "audio"
	case TypeVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Format 트랙 디스크립터
type Format struct {
	MIME         string `json:"mime"`
	Type         Type   `json:"-"`
	StreamNumber uint8  `json:"stream_number"`
	Encrypted    bool   `json:"encrypted"`

	// 비디오
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
	FourCC          string `json:"fourcc,omitempty"`
	ThumbnailTimeUs int64  `json:"thumbnail_time_us,omitempty"`

	// 오디오
	CodecID       uint16 `json:"codec_id,omitempty"`
	Channels      int    `json:"channels,omitempty"`
	SampleRate    int    `json:"sample_rate,omitempty"`
	BitsPerSample int    `json:"bits_per_sample,omitempty"`

	CodecConfig  []byte `json:"codec_config,omitempty"` // 코덱 설정 데이터
	MaxInputSize int    `json:"max_input_size"`         // 권장 버퍼 크기
	DurationUs   int64  `json:"duration_us"`
}

// IsAudio reports whether the format describes an audio track.
func (f Format) IsAudio() bool { return f.Type == TypeAudio }

// IsVideo reports whether the format describes a video track.
func (f Format) IsVideo() bool { return f.Type == TypeVideo }

// ContainerFormat 컨테이너 수준 메타데이터
type ContainerFormat struct {
	MIME       string `json:"mime"`
	DurationUs int64  `json:"duration_us"`
	Seekable   bool   `json:"seekable"`
	PacketSize int    `json:"packet_size"`
	Bitrate    int    `json:"bitrate"`
}
