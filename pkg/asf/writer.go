package asf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"sort"
)

// 생성 기본값
const (
	DefaultPacketSize    = 3200
	DefaultIndexInterval = 10000000 // 1초 (100ns 단위)
)

// CreateHeaderObject HeaderInfo 로 헤더 객체 생성
// File Properties, 스트림별 Stream Properties, Extended Stream Properties 를 담은 Header Extension 을 포함한다.
func CreateHeaderObject(info *HeaderInfo) []byte {
	objects := [][]byte{createFileProperties(info)}
	for i := range info.Streams {
		objects = append(objects, createStreamProperties(&info.Streams[i]))
	}
	objects = append(objects, createHeaderExtension(info.Streams))

	size := HeaderObjectPrefix
	for _, obj := range objects {
		size += len(obj)
	}

	data := make([]byte, HeaderObjectPrefix, size)
	copy(data[0:16], GUIDHeaderObject[:])
	binary.LittleEndian.PutUint64(data[16:24], uint64(size))
	binary.LittleEndian.PutUint32(data[24:28], uint32(len(objects)))
	data[28] = 0x01
	data[29] = 0x02
	for _, obj := range objects {
		data = append(data, obj...)
	}
	return data
}

func createFileProperties(info *HeaderInfo) []byte {
	obj := make([]byte, filePropertiesSize)
	copy(obj[0:16], GUIDFilePropertiesObject[:])
	binary.LittleEndian.PutUint64(obj[16:24], filePropertiesSize)
	copy(obj[24:40], info.FileID[:])
	binary.LittleEndian.PutUint64(obj[40:48], info.FileSize)
	binary.LittleEndian.PutUint64(obj[56:64], info.PacketCount)
	binary.LittleEndian.PutUint64(obj[64:72], info.PlayDuration)
	binary.LittleEndian.PutUint64(obj[72:80], info.Duration) // send duration
	binary.LittleEndian.PutUint64(obj[80:88], info.Preroll)
	binary.LittleEndian.PutUint32(obj[88:92], info.Flags)
	binary.LittleEndian.PutUint32(obj[92:96], info.PacketSize)
	binary.LittleEndian.PutUint32(obj[96:100], info.PacketSize)
	binary.LittleEndian.PutUint32(obj[100:104], info.MaxBitrate)
	return obj
}

func createStreamProperties(s *StreamInfo) []byte {
	var typeGUID GUID
	var typeSpecific []byte
	switch s.Kind {
	case StreamKindAudio:
		typeGUID = GUIDAudioMedia
		typeSpecific = createWaveFormatEx(s.Audio, s.CodecData)
	case StreamKindVideo:
		typeGUID = GUIDVideoMedia
		typeSpecific = createVideoTypeSpecific(s.Video, s.CodecData)
	}

	size := streamPropertiesMin + len(typeSpecific)
	obj := make([]byte, size)
	copy(obj[0:16], GUIDStreamPropertiesObject[:])
	binary.LittleEndian.PutUint64(obj[16:24], uint64(size))
	copy(obj[24:40], typeGUID[:])
	copy(obj[40:56], GUIDNoErrorCorrection[:])
	binary.LittleEndian.PutUint64(obj[56:64], s.TimeOffset)
	binary.LittleEndian.PutUint32(obj[64:68], uint32(len(typeSpecific)))
	flags := uint16(s.Number) & streamNumberMask
	if s.Encrypted {
		flags |= streamEncryptedFlag
	}
	binary.LittleEndian.PutUint16(obj[72:74], flags)
	copy(obj[streamPropertiesMin:], typeSpecific)
	return obj
}

func createWaveFormatEx(a *AudioInfo, codecData []byte) []byte {
	if a == nil {
		a = &AudioInfo{}
	}
	data := make([]byte, waveFormatExMin+len(codecData))
	binary.LittleEndian.PutUint16(data[0:2], a.CodecID)
	binary.LittleEndian.PutUint16(data[2:4], a.Channels)
	binary.LittleEndian.PutUint32(data[4:8], a.SampleRate)
	binary.LittleEndian.PutUint32(data[8:12], a.AvgBytesPerSec)
	binary.LittleEndian.PutUint16(data[12:14], a.BlockAlign)
	binary.LittleEndian.PutUint16(data[14:16], a.BitsPerSample)
	binary.LittleEndian.PutUint16(data[16:18], uint16(len(codecData)))
	copy(data[waveFormatExMin:], codecData)
	return data
}

func createVideoTypeSpecific(v *VideoInfo, codecData []byte) []byte {
	if v == nil {
		v = &VideoInfo{}
	}
	formatDataSize := bitmapInfoHeaderSize + len(codecData)
	data := make([]byte, videoTypeSpecificMin+formatDataSize)
	binary.LittleEndian.PutUint32(data[0:4], v.Width)
	binary.LittleEndian.PutUint32(data[4:8], v.Height)
	data[8] = 0x02
	binary.LittleEndian.PutUint16(data[9:11], uint16(formatDataSize))

	bih := data[videoTypeSpecificMin:]
	binary.LittleEndian.PutUint32(bih[0:4], uint32(formatDataSize))
	binary.LittleEndian.PutUint32(bih[4:8], v.Width)
	binary.LittleEndian.PutUint32(bih[8:12], v.Height)
	binary.LittleEndian.PutUint16(bih[12:14], 1)
	binary.LittleEndian.PutUint16(bih[14:16], v.BitsPerPixel)
	binary.LittleEndian.PutUint32(bih[16:20], v.FourCC)
	copy(bih[bitmapInfoHeaderSize:], codecData)
	return data
}

func createHeaderExtension(streams []StreamInfo) []byte {
	var ext []byte
	for i := range streams {
		ext = append(ext, createExtendedStreamProperties(&streams[i])...)
	}

	size := headerExtensionMin + len(ext)
	obj := make([]byte, headerExtensionMin, size)
	copy(obj[0:16], GUIDHeaderExtensionObject[:])
	binary.LittleEndian.PutUint64(obj[16:24], uint64(size))
	copy(obj[24:40], GUIDHeaderExtensionReserved1[:])
	binary.LittleEndian.PutUint16(obj[40:42], 6)
	binary.LittleEndian.PutUint32(obj[42:46], uint32(len(ext)))
	return append(obj, ext...)
}

func createExtendedStreamProperties(s *StreamInfo) []byte {
	obj := make([]byte, extStreamPropsMin)
	copy(obj[0:16], GUIDExtendedStreamProperties[:])
	binary.LittleEndian.PutUint64(obj[16:24], extStreamPropsMin)
	binary.LittleEndian.PutUint32(obj[64:68], s.MaxObjectSize)
	binary.LittleEndian.PutUint16(obj[72:74], uint16(s.Number))
	return obj
}

// CreateDataObjectHeader 데이터 객체 헤더(50바이트) 생성
func CreateDataObjectHeader(fileID GUID, packetCount uint64, packetSize uint32) []byte {
	data := make([]byte, DataObjectHeaderSize)
	copy(data[0:16], GUIDDataObject[:])
	binary.LittleEndian.PutUint64(data[16:24], DataObjectHeaderSize+packetCount*uint64(packetSize))
	copy(data[24:40], fileID[:])
	binary.LittleEndian.PutUint64(data[40:48], packetCount)
	data[48] = 0x01
	data[49] = 0x01
	return data
}

// CreateDataPacket 다중 페이로드 데이터 패킷 생성
func CreateDataPacket(packetSize uint32, sendTime uint32, payloads []Payload) ([]byte, error) {
	return createDataPacket(packetSize, sendTime, payloads)
}

// CreateSimpleIndexObject 단순 인덱스 객체 생성
func CreateSimpleIndexObject(idx *SimpleIndex) []byte {
	return createSimpleIndexObject(idx)
}

// MuxerConfig Muxer 설정
type MuxerConfig struct {
	FileID        GUID
	PacketSize    uint32 // 0 이면 DefaultPacketSize
	Preroll       uint64 // ms
	IndexInterval uint64 // 100ns 단위, 0 이면 DefaultIndexInterval
	NoIndex       bool   // 단순 인덱스를 쓰지 않음 (seekable 플래그도 해제)
}

// keyframeMark 키프레임 객체가 시작된 패킷
type keyframeMark struct {
	packet uint32
	time   uint64 // 인덱스 시간 (100ns, preroll 포함)
}

// Muxer 미디어 객체를 고정 크기 데이터 패킷으로 나누어 ASF 파일을 만든다.
//
// 객체는 시간 순서로 써야 한다. 인덱스 스트림(첫 비디오 스트림, 없으면 첫 스트림)의
// 키프레임은 항상 새 패킷에서 시작한다.
type Muxer struct {
	config  MuxerConfig
	streams []StreamInfo

	packets     [][]byte
	pending     []Payload
	pendingUsed int
	sendTime    uint32

	objectNumbers map[uint8]uint32
	keyframes     []keyframeMark
	indexStream   uint8
	lastTime      uint32 // ms, preroll 포함
	totalBytes    uint64
}

// NewMuxer 새 Muxer 생성
func NewMuxer(config MuxerConfig) *Muxer {
	if config.PacketSize == 0 {
		config.PacketSize = DefaultPacketSize
	}
	if config.IndexInterval == 0 {
		config.IndexInterval = DefaultIndexInterval
	}
	return &Muxer{
		config:        config,
		objectNumbers: make(map[uint8]uint32),
	}
}

// AddStream 스트림 추가
func (m *Muxer) AddStream(s StreamInfo) error {
	if s.Number == 0 || s.Number > streamNumberMask {
		return fmt.Errorf("asf: invalid stream number %d", s.Number)
	}
	if s.Kind != StreamKindAudio && s.Kind != StreamKindVideo {
		return fmt.Errorf("asf: stream %d: unsupported kind %s", s.Number, s.Kind)
	}
	for _, existing := range m.streams {
		if existing.Number == s.Number {
			return fmt.Errorf("asf: duplicate stream number %d", s.Number)
		}
	}
	if len(m.packets) > 0 || len(m.pending) > 0 {
		return fmt.Errorf("asf: stream %d added after objects were written", s.Number)
	}

	s.MaxObjectSize = 0
	m.streams = append(m.streams, s)
	m.updateIndexStream()
	return nil
}

func (m *Muxer) updateIndexStream() {
	m.indexStream = m.streams[0].Number
	for _, s := range m.streams {
		if s.Kind == StreamKindVideo {
			m.indexStream = s.Number
			return
		}
	}
}

func (m *Muxer) stream(number uint8) *StreamInfo {
	for i := range m.streams {
		if m.streams[i].Number == number {
			return &m.streams[i]
		}
	}
	return nil
}

// WriteObject 미디어 객체 하나를 기록 (pts 는 preroll 제외 ms)
func (m *Muxer) WriteObject(streamNumber uint8, pts uint32, keyframe bool, data []byte) error {
	s := m.stream(streamNumber)
	if s == nil {
		return fmt.Errorf("asf: unknown stream %d", streamNumber)
	}
	if len(data) == 0 {
		return fmt.Errorf("asf: stream %d: empty object", streamNumber)
	}
	if uint64(pts)+m.config.Preroll > 0xFFFFFFFF {
		return fmt.Errorf("asf: stream %d: presentation time %d out of range", streamNumber, pts)
	}

	data = bytes.Clone(data)
	presentation := pts + uint32(m.config.Preroll)
	if keyframe && streamNumber == m.indexStream {
		if err := m.flush(); err != nil {
			return err
		}
		m.keyframes = append(m.keyframes, keyframeMark{
			packet: uint32(len(m.packets)),
			time:   uint64(presentation) * hundredNsPerMs,
		})
	}

	objectNumber := m.objectNumbers[streamNumber]
	m.objectNumbers[streamNumber] = (objectNumber + 1) & 0xFF

	offset := 0
	for offset < len(data) {
		available := int(m.config.PacketSize) - packetHeaderSize - m.pendingUsed - payloadHeaderSize
		if available <= 0 || len(m.pending) == maxPayloadsPerPkt {
			if len(m.pending) == 0 {
				return newParseError("data packet", ErrInvalidPacketSize, 0, nil)
			}
			if err := m.flush(); err != nil {
				return err
			}
			continue
		}

		n := len(data) - offset
		if n > available {
			n = available
		}
		if len(m.pending) == 0 {
			m.sendTime = presentation
		}
		m.pending = append(m.pending, Payload{
			StreamNumber:     streamNumber,
			ObjectNumber:     objectNumber,
			ObjectLength:     uint32(len(data)),
			Offset:           uint32(offset),
			Keyframe:         keyframe,
			PresentationTime: presentation,
			Data:             data[offset : offset+n],
		})
		m.pendingUsed += payloadHeaderSize + n
		offset += n
	}

	if uint32(len(data)) > s.MaxObjectSize {
		s.MaxObjectSize = uint32(len(data))
	}
	if presentation > m.lastTime {
		m.lastTime = presentation
	}
	m.totalBytes += uint64(len(data))
	return nil
}

// flush 대기 중인 페이로드로 패킷 하나를 완성
func (m *Muxer) flush() error {
	if len(m.pending) == 0 {
		return nil
	}
	packet, err := createDataPacket(m.config.PacketSize, m.sendTime, m.pending)
	if err != nil {
		return err
	}
	m.packets = append(m.packets, packet)
	m.pending = m.pending[:0]
	m.pendingUsed = 0
	return nil
}

// buildIndex 각 간격 시점 이전의 마지막 키프레임 패킷으로 인덱스 생성
func (m *Muxer) buildIndex(playDuration uint64) *SimpleIndex {
	interval := m.config.IndexInterval
	count := playDuration/interval + 1

	marks := m.keyframes
	sort.SliceStable(marks, func(i, j int) bool { return marks[i].time < marks[j].time })

	idx := &SimpleIndex{
		FileID:   m.config.FileID,
		Interval: interval,
		Entries:  make([]SimpleIndexEntry, count),
	}
	k := -1
	for i := range idx.Entries {
		t := uint64(i) * interval
		for k+1 < len(marks) && marks[k+1].time <= t {
			k++
		}
		entry := SimpleIndexEntry{PacketCount: 1}
		if k >= 0 {
			entry.PacketNumber = marks[k].packet
		}
		idx.Entries[i] = entry
	}
	idx.MaxPacketCount = 1
	return idx
}

// Bytes 완성된 ASF 파일 바이트 (헤더 + 데이터 객체 + 인덱스)
func (m *Muxer) Bytes() ([]byte, error) {
	if len(m.streams) == 0 {
		return nil, ErrNoStreams
	}
	if err := m.flush(); err != nil {
		return nil, err
	}

	packetCount := uint64(len(m.packets))
	playDuration := uint64(m.lastTime) * hundredNsPerMs
	prerollTicks := m.config.Preroll * hundredNsPerMs

	info := &HeaderInfo{
		FileID:       m.config.FileID,
		PacketCount:  packetCount,
		PlayDuration: playDuration,
		Preroll:      m.config.Preroll,
		PacketSize:   m.config.PacketSize,
		Streams:      m.streams,
	}
	if playDuration > prerollTicks {
		info.Duration = playDuration - prerollTicks
	}
	if info.Duration > 0 {
		info.MaxBitrate = uint32(m.totalBytes * 8 * 10000000 / info.Duration)
	}

	var index []byte
	if !m.config.NoIndex {
		info.Flags |= FilePropertySeekable
		index = createSimpleIndexObject(m.buildIndex(playDuration))
	}

	// 파일 크기는 헤더 크기에 의존하므로 두 번 생성
	header := CreateHeaderObject(info)
	dataHeader := CreateDataObjectHeader(m.config.FileID, packetCount, m.config.PacketSize)
	info.FileSize = uint64(len(header)+len(dataHeader)+len(index)) + packetCount*uint64(m.config.PacketSize)
	header = CreateHeaderObject(info)

	out := make([]byte, 0, info.FileSize)
	out = append(out, header...)
	out = append(out, dataHeader...)
	for _, p := range m.packets {
		out = append(out, p...)
	}
	out = append(out, index...)

	slog.Debug("ASF file created",
		"streams", len(m.streams),
		"packets", packetCount,
		"size", len(out),
		"indexed", !m.config.NoIndex)
	return out, nil
}

// WriteTo 완성된 파일을 w 에 기록
func (m *Muxer) WriteTo(w io.Writer) (int64, error) {
	data, err := m.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// PacketCount 지금까지 완성된 패킷 수
func (m *Muxer) PacketCount() int {
	return len(m.packets)
}
