package asf

import "strings"

// MIME 타입
const (
	MIMEContainerASF = "video/x-ms-asf"

	MIMEAudioWMA      = "audio/x-ms-wma"
	MIMEAudioWMAPro   = "audio/x-ms-wma-pro"
	MIMEAudioWMAVoice = "audio/x-ms-wma-voice"
	MIMEAudioMPEG     = "audio/mpeg"
	MIMEAudioRaw      = "audio/raw"
	MIMEAudioAAC      = "audio/mp4a-latm"

	MIMEVideoWMV   = "video/x-ms-wmv"
	MIMEVideoVC1   = "video/wvc1"
	MIMEVideoMPEG4 = "video/mp4v-es"
	MIMEVideoAVC   = "video/avc"

	MIMEUnknown = "application/octet-stream"
)

// WAVEFORMATEX 코덱 ID
const (
	CodecIDPCM         = 0x0001
	CodecIDMP3         = 0x0055
	CodecIDWMAVoice    = 0x000A
	CodecIDWMAv1       = 0x0160
	CodecIDWMAv2       = 0x0161
	CodecIDWMAPro      = 0x0162
	CodecIDWMALossless = 0x0163
	CodecIDAAC         = 0x00FF
)

var audioCodecMIME = map[uint16]string{
	CodecIDPCM:         MIMEAudioRaw,
	CodecIDMP3:         MIMEAudioMPEG,
	CodecIDWMAVoice:    MIMEAudioWMAVoice,
	CodecIDWMAv1:       MIMEAudioWMA,
	CodecIDWMAv2:       MIMEAudioWMA,
	CodecIDWMAPro:      MIMEAudioWMAPro,
	CodecIDWMALossless: MIMEAudioWMAPro,
	CodecIDAAC:         MIMEAudioAAC,
}

var videoFourCCMIME = map[string]string{
	"WMV1": MIMEVideoWMV,
	"WMV2": MIMEVideoWMV,
	"WMV3": MIMEVideoWMV,
	"WMVA": MIMEVideoVC1,
	"WVC1": MIMEVideoVC1,
	"MP4S": MIMEVideoMPEG4,
	"M4S2": MIMEVideoMPEG4,
	"MP43": MIMEVideoMPEG4,
	"H264": MIMEVideoAVC,
	"AVC1": MIMEVideoAVC,
}

// AudioMIME 오디오 코덱 ID의 MIME 타입
func AudioMIME(codecID uint16) string {
	if mime, ok := audioCodecMIME[codecID]; ok {
		return mime
	}
	return MIMEUnknown
}

// VideoMIME FourCC 의 MIME 타입 (대소문자 무시)
func VideoMIME(fourCC uint32) string {
	if mime, ok := videoFourCCMIME[strings.ToUpper(FourCCString(fourCC))]; ok {
		return mime
	}
	return MIMEUnknown
}

// FourCCString 리틀엔디언 FourCC 를 문자열로 변환
func FourCCString(fourCC uint32) string {
	return string([]byte{byte(fourCC), byte(fourCC >> 8), byte(fourCC >> 16), byte(fourCC >> 24)})
}

// FourCC 4글자 문자열을 리틀엔디언 FourCC 값으로 변환
func FourCC(s string) uint32 {
	var b [4]byte
	copy(b[:], s)
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
