package asf

import (
	"encoding/binary"
)

// parseObjectHeader 24바이트 객체 헤더 파싱
func parseObjectHeader(data []byte) (GUID, uint64, error) {
	if len(data) < ObjectHeaderSize {
		return GUID{}, 0, newParseError("object header", ErrBufferTooSmall, 0, data)
	}
	guid := readGUID(data)
	size := binary.LittleEndian.Uint64(data[16:24])
	if size < ObjectHeaderSize {
		return guid, size, newParseError("object header", ErrInvalidObjectSize, 16, data)
	}
	return guid, size, nil
}

// parseHeaderObject 헤더 객체와 하위 객체들을 파싱
func parseHeaderObject(data []byte) (*HeaderInfo, error) {
	if len(data) < HeaderObjectPrefix {
		return nil, newParseError("header object", ErrBufferTooSmall, 0, data)
	}

	guid, size, err := parseObjectHeader(data)
	if err != nil {
		return nil, err
	}
	if guid != GUIDHeaderObject {
		return nil, newParseError("header object", ErrInvalidGUID, 0, data)
	}
	if size < HeaderObjectPrefix || size > uint64(len(data)) {
		return nil, newParseError("header object", ErrInvalidObjectSize, 16, data)
	}

	info := &HeaderInfo{}
	hasFileProperties := false
	// 스트림 번호별 Extended Stream Properties 의 최대 객체 크기
	maxObjectSizes := make(map[uint8]uint32)

	objectCount := binary.LittleEndian.Uint32(data[24:28])
	offset := HeaderObjectPrefix
	end := int(size)
	for i := uint32(0); i < objectCount && offset < end; i++ {
		objGUID, objSize, err := parseObjectHeader(data[offset:end])
		if err != nil {
			return nil, newParseError("header object", ErrInvalidObjectSize, offset, data[offset:])
		}
		if objSize > uint64(end-offset) {
			return nil, newParseError("header object", ErrInvalidObjectSize, offset, data[offset:])
		}
		obj := data[offset : offset+int(objSize)]

		switch objGUID {
		case GUIDFilePropertiesObject:
			if err := parseFileProperties(obj, info); err != nil {
				return nil, err
			}
			hasFileProperties = true
		case GUIDStreamPropertiesObject:
			stream, err := parseStreamProperties(obj)
			if err != nil {
				return nil, err
			}
			info.addStream(stream)
		case GUIDHeaderExtensionObject:
			if err := parseHeaderExtension(obj, info, maxObjectSizes); err != nil {
				return nil, err
			}
		default:
			// 그 외 객체는 무시 (메타데이터, 코덱 리스트 등)
		}

		offset += int(objSize)
	}

	if !hasFileProperties {
		return nil, newParseError("header object", ErrNoFileProperties, 0, nil)
	}
	if len(info.Streams) == 0 {
		return nil, newParseError("header object", ErrNoStreams, 0, nil)
	}

	for i := range info.Streams {
		if maxSize, ok := maxObjectSizes[info.Streams[i].Number]; ok {
			info.Streams[i].MaxObjectSize = maxSize
		}
		if info.Streams[i].MaxObjectSize > info.MaxObjectSize {
			info.MaxObjectSize = info.Streams[i].MaxObjectSize
		}
	}

	return info, nil
}

// addStream 같은 번호의 스트림이 없을 때만 추가 (발견 순서 유지)
func (h *HeaderInfo) addStream(stream StreamInfo) {
	if _, exists := h.Stream(stream.Number); exists {
		return
	}
	h.Streams = append(h.Streams, stream)
}

// parseFileProperties File Properties 객체 파싱
func parseFileProperties(obj []byte, info *HeaderInfo) error {
	if len(obj) < filePropertiesSize {
		return newParseError("file properties", ErrBufferTooSmall, 0, obj)
	}

	info.FileID = readGUID(obj[24:40])
	info.FileSize = binary.LittleEndian.Uint64(obj[40:48])
	info.PacketCount = binary.LittleEndian.Uint64(obj[56:64])
	info.PlayDuration = binary.LittleEndian.Uint64(obj[64:72])
	info.Preroll = binary.LittleEndian.Uint64(obj[80:88])
	info.Flags = binary.LittleEndian.Uint32(obj[88:92])
	minPacketSize := binary.LittleEndian.Uint32(obj[92:96])
	maxPacketSize := binary.LittleEndian.Uint32(obj[96:100])
	info.MaxBitrate = binary.LittleEndian.Uint32(obj[100:104])

	// 데이터 패킷은 고정 크기여야 함
	if minPacketSize != maxPacketSize || minPacketSize == 0 {
		return newParseError("file properties", ErrInvalidPacketSize, 92, obj[92:100])
	}
	info.PacketSize = minPacketSize

	// play duration 은 preroll 을 포함하므로 제외
	prerollTicks := info.Preroll * 10000
	if info.PlayDuration > prerollTicks {
		info.Duration = info.PlayDuration - prerollTicks
	}

	return nil
}

// parseStreamProperties Stream Properties 객체 파싱
func parseStreamProperties(obj []byte) (StreamInfo, error) {
	var stream StreamInfo
	if len(obj) < streamPropertiesMin {
		return stream, newParseError("stream properties", ErrBufferTooSmall, 0, obj)
	}

	streamType := readGUID(obj[24:40])
	stream.TimeOffset = binary.LittleEndian.Uint64(obj[56:64])
	typeSpecificLen := int(binary.LittleEndian.Uint32(obj[64:68]))
	errorCorrectionLen := int(binary.LittleEndian.Uint32(obj[68:72]))
	flags := binary.LittleEndian.Uint16(obj[72:74])
	stream.Number = uint8(flags & streamNumberMask)
	stream.Encrypted = flags&streamEncryptedFlag != 0

	if stream.Number == 0 {
		return stream, newParseError("stream properties", ErrInvalidPacket, 72, obj[72:74])
	}
	if typeSpecificLen < 0 || errorCorrectionLen < 0 ||
		streamPropertiesMin+typeSpecificLen+errorCorrectionLen > len(obj) {
		return stream, newParseError("stream properties", ErrInvalidObjectSize, 64, obj[64:72])
	}
	typeSpecific := obj[streamPropertiesMin : streamPropertiesMin+typeSpecificLen]

	switch streamType {
	case GUIDAudioMedia:
		stream.Kind = StreamKindAudio
		audio, codecData, err := parseWaveFormatEx(typeSpecific)
		if err != nil {
			return stream, err
		}
		stream.Audio = audio
		stream.CodecData = codecData
	case GUIDVideoMedia:
		stream.Kind = StreamKindVideo
		video, codecData, err := parseVideoTypeSpecific(typeSpecific)
		if err != nil {
			return stream, err
		}
		stream.Video = video
		stream.CodecData = codecData
	default:
		stream.Kind = StreamKindUnknown
	}

	return stream, nil
}

// parseWaveFormatEx 오디오 Type-Specific 데이터 (WAVEFORMATEX)
func parseWaveFormatEx(data []byte) (*AudioInfo, []byte, error) {
	if len(data) < waveFormatExMin {
		return nil, nil, newParseError("audio media", ErrBufferTooSmall, 0, data)
	}

	audio := &AudioInfo{
		CodecID:        binary.LittleEndian.Uint16(data[0:2]),
		Channels:       binary.LittleEndian.Uint16(data[2:4]),
		SampleRate:     binary.LittleEndian.Uint32(data[4:8]),
		AvgBytesPerSec: binary.LittleEndian.Uint32(data[8:12]),
		BlockAlign:     binary.LittleEndian.Uint16(data[12:14]),
		BitsPerSample:  binary.LittleEndian.Uint16(data[14:16]),
	}
	codecDataSize := int(binary.LittleEndian.Uint16(data[16:18]))
	if waveFormatExMin+codecDataSize > len(data) {
		return nil, nil, newParseError("audio media", ErrInvalidObjectSize, 16, data)
	}

	var codecData []byte
	if codecDataSize > 0 {
		codecData = append([]byte(nil), data[waveFormatExMin:waveFormatExMin+codecDataSize]...)
	}
	return audio, codecData, nil
}

// parseVideoTypeSpecific 비디오 Type-Specific 데이터 (BITMAPINFOHEADER 포함)
func parseVideoTypeSpecific(data []byte) (*VideoInfo, []byte, error) {
	if len(data) < videoTypeSpecificMin+bitmapInfoHeaderSize {
		return nil, nil, newParseError("video media", ErrBufferTooSmall, 0, data)
	}

	formatDataSize := int(binary.LittleEndian.Uint16(data[9:11]))
	if formatDataSize < bitmapInfoHeaderSize || videoTypeSpecificMin+formatDataSize > len(data) {
		return nil, nil, newParseError("video media", ErrInvalidObjectSize, 9, data)
	}

	bih := data[videoTypeSpecificMin : videoTypeSpecificMin+formatDataSize]
	video := &VideoInfo{
		Width:        binary.LittleEndian.Uint32(data[0:4]),
		Height:       binary.LittleEndian.Uint32(data[4:8]),
		BitsPerPixel: binary.LittleEndian.Uint16(bih[14:16]),
		FourCC:       binary.LittleEndian.Uint32(bih[16:20]),
	}

	var codecData []byte
	if formatDataSize > bitmapInfoHeaderSize {
		codecData = append([]byte(nil), bih[bitmapInfoHeaderSize:]...)
	}
	return video, codecData, nil
}

// parseHeaderExtension Header Extension 객체 안의 확장 객체 파싱
func parseHeaderExtension(obj []byte, info *HeaderInfo, maxObjectSizes map[uint8]uint32) error {
	if len(obj) < headerExtensionMin {
		return newParseError("header extension", ErrBufferTooSmall, 0, obj)
	}

	dataSize := int(binary.LittleEndian.Uint32(obj[42:46]))
	if headerExtensionMin+dataSize > len(obj) {
		return newParseError("header extension", ErrInvalidObjectSize, 42, obj[42:46])
	}

	ext := obj[headerExtensionMin : headerExtensionMin+dataSize]
	offset := 0
	for offset+ObjectHeaderSize <= len(ext) {
		guid, size, err := parseObjectHeader(ext[offset:])
		if err != nil || size > uint64(len(ext)-offset) {
			return newParseError("header extension", ErrInvalidObjectSize, headerExtensionMin+offset, ext[offset:])
		}
		child := ext[offset : offset+int(size)]

		if guid == GUIDExtendedStreamProperties {
			number, maxObjectSize, embedded, err := parseExtendedStreamProperties(child)
			if err != nil {
				return err
			}
			maxObjectSizes[number] = maxObjectSize
			if embedded != nil {
				info.addStream(*embedded)
			}
		}

		offset += int(size)
	}

	return nil
}

// parseExtendedStreamProperties Extended Stream Properties 객체 파싱
// 최대 객체 크기와 (있다면) 내장된 Stream Properties 객체를 반환
func parseExtendedStreamProperties(obj []byte) (uint8, uint32, *StreamInfo, error) {
	if len(obj) < extStreamPropsMin {
		return 0, 0, nil, newParseError("extended stream properties", ErrBufferTooSmall, 0, obj)
	}

	maxObjectSize := binary.LittleEndian.Uint32(obj[64:68])
	number := uint8(binary.LittleEndian.Uint16(obj[72:74]) & streamNumberMask)
	nameCount := int(binary.LittleEndian.Uint16(obj[84:86]))
	extSystemCount := int(binary.LittleEndian.Uint16(obj[86:88]))

	offset := extStreamPropsMin
	for i := 0; i < nameCount; i++ {
		if offset+4 > len(obj) {
			return 0, 0, nil, newParseError("extended stream properties", ErrBufferTooSmall, offset, nil)
		}
		nameLen := int(binary.LittleEndian.Uint16(obj[offset+2 : offset+4]))
		offset += 4 + nameLen
	}
	for i := 0; i < extSystemCount; i++ {
		if offset+22 > len(obj) {
			return 0, 0, nil, newParseError("extended stream properties", ErrBufferTooSmall, offset, nil)
		}
		infoLen := int(binary.LittleEndian.Uint32(obj[offset+18 : offset+22]))
		offset += 22 + infoLen
	}
	if offset > len(obj) {
		return 0, 0, nil, newParseError("extended stream properties", ErrInvalidObjectSize, offset, nil)
	}

	// 남은 영역에 Stream Properties 객체가 내장될 수 있음
	if len(obj)-offset >= ObjectHeaderSize {
		guid, size, err := parseObjectHeader(obj[offset:])
		if err == nil && guid == GUIDStreamPropertiesObject && size <= uint64(len(obj)-offset) {
			stream, err := parseStreamProperties(obj[offset : offset+int(size)])
			if err != nil {
				return 0, 0, nil, err
			}
			return number, maxObjectSize, &stream, nil
		}
	}

	return number, maxObjectSize, nil, nil
}

// parseDataObjectHeader 데이터 객체 헤더 파싱
func parseDataObjectHeader(data []byte) (*DataObjectHeader, error) {
	if len(data) < DataObjectHeaderSize {
		return nil, newParseError("data object", ErrBufferTooSmall, 0, data)
	}

	guid, size, err := parseObjectHeader(data)
	if err != nil {
		return nil, err
	}
	if guid != GUIDDataObject {
		return nil, newParseError("data object", ErrInvalidGUID, 0, data)
	}
	if size < DataObjectHeaderSize {
		return nil, newParseError("data object", ErrInvalidObjectSize, 16, data)
	}

	return &DataObjectHeader{
		Size:        size,
		FileID:      readGUID(data[24:40]),
		PacketCount: binary.LittleEndian.Uint64(data[40:48]),
	}, nil
}
