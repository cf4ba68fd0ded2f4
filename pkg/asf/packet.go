package asf

import (
	"encoding/binary"
)

// 길이 타입 플래그 바이트 (Length Type Flags)
const (
	flagMultiplePayloads  = 0x01
	flagErrorCorrection   = 0x80
	errorCorrectionLenMsk = 0x0F
)

// packetReader 데이터 패킷 순차 읽기 헬퍼
type packetReader struct {
	data []byte
	pos  int
	end  int
	err  error
}

func (r *packetReader) fail(err error) {
	if r.err == nil {
		r.err = newParseError("data packet", err, r.pos, r.data[r.pos:])
	}
}

func (r *packetReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.pos+n > r.end {
		r.fail(ErrBufferTooSmall)
		return false
	}
	return true
}

func (r *packetReader) u8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *packetReader) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *packetReader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

// varLen 2비트 길이 타입에 따라 0/1/2/4 바이트 값을 읽음
func (r *packetReader) varLen(lengthType uint8) uint32 {
	switch lengthType {
	case lengthTypeNone:
		return 0
	case lengthTypeByte:
		return uint32(r.u8())
	case lengthTypeWord:
		return uint32(r.u16())
	default:
		return r.u32()
	}
}

func (r *packetReader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n
	return v
}

// payloadHeader 페이로드 공통 헤더 필드
type payloadHeader struct {
	streamNumber uint8
	keyframe     bool
	objectNumber uint32
	offset       uint32 // 압축 페이로드면 presentation time
	replicated   []byte
}

// parseDataPacket 데이터 패킷을 페이로드 목록으로 분해
func parseDataPacket(data []byte, preroll uint64) ([]Payload, error) {
	r := &packetReader{data: data, end: len(data)}

	flags := r.u8()
	if flags&flagErrorCorrection != 0 {
		// 에러 정정 데이터: 길이 타입이 00 이어야 함
		if (flags>>5)&0x03 != 0 {
			return nil, newParseError("data packet", ErrInvalidLengthType, 0, data)
		}
		r.bytes(int(flags & errorCorrectionLenMsk))
		flags = r.u8()
	}
	propertyFlags := r.u8()
	if r.err != nil {
		return nil, r.err
	}

	multiple := flags&flagMultiplePayloads != 0
	sequenceType := (flags >> 1) & 0x03
	paddingType := (flags >> 3) & 0x03
	packetLengthType := (flags >> 5) & 0x03

	repLenType := propertyFlags & 0x03
	offsetType := (propertyFlags >> 2) & 0x03
	objNumType := (propertyFlags >> 4) & 0x03
	streamNumType := (propertyFlags >> 6) & 0x03
	if streamNumType != lengthTypeByte {
		return nil, newParseError("data packet", ErrInvalidLengthType, r.pos-1, data)
	}

	packetLength := int(r.varLen(packetLengthType))
	r.varLen(sequenceType)
	padding := int(r.varLen(paddingType))
	sendTime := r.u32()
	r.u16() // duration
	if r.err != nil {
		return nil, r.err
	}

	// 명시된 패킷 길이가 고정 크기보다 작으면 나머지는 패딩
	if packetLength != 0 {
		if packetLength > len(data) {
			return nil, newParseError("data packet", ErrInvalidPacketSize, 0, data)
		}
		padding += len(data) - packetLength
	}
	if padding > len(data)-r.pos {
		return nil, newParseError("data packet", ErrInvalidPacket, r.pos, data[r.pos:])
	}
	r.end = len(data) - padding

	readHeader := func() payloadHeader {
		var h payloadHeader
		sn := r.u8()
		h.streamNumber = sn & payloadStreamNumMask
		h.keyframe = sn&payloadKeyframeFlag != 0
		h.objectNumber = r.varLen(objNumType)
		h.offset = r.varLen(offsetType)
		h.replicated = r.bytes(int(r.varLen(repLenType)))
		return h
	}

	var payloads []Payload
	if !multiple {
		h := readHeader()
		if r.err != nil {
			return nil, r.err
		}
		body := r.bytes(r.end - r.pos)
		out, err := buildPayloads(h, body, sendTime, preroll)
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	payloadFlags := r.u8()
	count := int(payloadFlags & 0x3F)
	payloadLenType := (payloadFlags >> 6) & 0x03
	if r.err == nil && count == 0 {
		return nil, newParseError("data packet", ErrInvalidPacket, r.pos-1, data)
	}
	for i := 0; i < count; i++ {
		h := readHeader()
		length := int(r.varLen(payloadLenType))
		body := r.bytes(length)
		if r.err != nil {
			return nil, r.err
		}
		out, err := buildPayloads(h, body, sendTime, preroll)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, out...)
	}

	return payloads, nil
}

// buildPayloads 페이로드 헤더와 본문으로 Payload 엔트리 생성
// 압축 페이로드(replicated data 길이 1)는 하위 페이로드마다 완전한 객체 하나가 된다
func buildPayloads(h payloadHeader, body []byte, sendTime uint32, preroll uint64) ([]Payload, error) {
	if h.streamNumber == 0 {
		return nil, newParseError("payload", ErrInvalidPacket, 0, body)
	}

	switch {
	case len(h.replicated) == 1:
		delta := uint32(h.replicated[0])
		presentation := h.offset
		var out []Payload
		pos := 0
		for pos < len(body) {
			size := int(body[pos])
			pos++
			if size == 0 || pos+size > len(body) {
				return nil, newParseError("compressed payload", ErrInvalidPacket, pos, body)
			}
			out = append(out, Payload{
				StreamNumber:     h.streamNumber,
				ObjectNumber:     h.objectNumber,
				ObjectLength:     uint32(size),
				Offset:           0,
				Keyframe:         h.keyframe,
				PresentationTime: subtractPreroll(presentation, preroll),
				Data:             body[pos : pos+size],
			})
			h.objectNumber++
			presentation += delta
			pos += size
		}
		return out, nil

	case len(h.replicated) >= 8:
		objectLength := binary.LittleEndian.Uint32(h.replicated[0:4])
		presentation := binary.LittleEndian.Uint32(h.replicated[4:8])
		if uint64(h.offset)+uint64(len(body)) > uint64(objectLength) {
			return nil, newParseError("payload", ErrInvalidPacket, 0, h.replicated)
		}
		return []Payload{{
			StreamNumber:     h.streamNumber,
			ObjectNumber:     h.objectNumber,
			ObjectLength:     objectLength,
			Offset:           h.offset,
			Keyframe:         h.keyframe,
			PresentationTime: subtractPreroll(presentation, preroll),
			Data:             body,
		}}, nil

	case len(h.replicated) == 0:
		// replicated data 가 없으면 페이로드가 곧 객체, 시간은 send time
		return []Payload{{
			StreamNumber:     h.streamNumber,
			ObjectNumber:     h.objectNumber,
			ObjectLength:     uint32(len(body)),
			Offset:           0,
			Keyframe:         h.keyframe,
			PresentationTime: subtractPreroll(sendTime, preroll),
			Data:             body,
		}}, nil

	default:
		return nil, newParseError("payload", ErrInvalidObjectSize, 0, h.replicated)
	}
}

func subtractPreroll(t uint32, preroll uint64) uint32 {
	if uint64(t) <= preroll {
		return 0
	}
	return uint32(uint64(t) - preroll)
}

// 패킷 생성 시 사용하는 고정 레이아웃
const (
	packetHeaderSize  = 3 + 2 + 2 + 4 + 2 + 1 // EC(3) + 플래그(2) + 패딩(2) + send time(4) + duration(2) + payload flags(1)
	payloadHeaderSize = 1 + 1 + 4 + 1 + 8 + 2  // 스트림 + 객체 번호 + 오프셋 + rep 길이 + rep + 페이로드 길이
	maxPayloadsPerPkt = 0x3F
)

// PacketPayloadOverhead 페이로드 하나가 패킷 안에서 차지하는 헤더 크기
const PacketPayloadOverhead = payloadHeaderSize

// PacketHeaderOverhead 다중 페이로드 패킷 헤더 크기
const PacketHeaderOverhead = packetHeaderSize

// createDataPacket 다중 페이로드 데이터 패킷 생성 (고정 크기, 나머지는 패딩)
//
// 각 Payload 의 PresentationTime 은 preroll 이 더해지지 않은 값으로 기록된다.
func createDataPacket(packetSize uint32, sendTime uint32, payloads []Payload) ([]byte, error) {
	if len(payloads) == 0 || len(payloads) > maxPayloadsPerPkt {
		return nil, newParseError("data packet", ErrInvalidPacket, 0, nil)
	}

	used := packetHeaderSize
	for _, p := range payloads {
		if len(p.Data) > 0xFFFF || p.ObjectNumber > 0xFF {
			return nil, newParseError("data packet", ErrInvalidPacket, used, nil)
		}
		used += payloadHeaderSize + len(p.Data)
	}
	if used > int(packetSize) {
		return nil, newParseError("data packet", ErrBufferTooSmall, used, nil)
	}
	padding := int(packetSize) - used

	packet := make([]byte, packetSize)
	pos := 0
	// 에러 정정 데이터 2바이트
	packet[pos] = flagErrorCorrection | 0x02
	pos += 3
	// 다중 페이로드, 패딩 길이 WORD
	packet[pos] = flagMultiplePayloads | lengthTypeWord<<3
	// replicated 길이 BYTE, 오프셋 DWORD, 객체 번호 BYTE, 스트림 번호 BYTE
	packet[pos+1] = lengthTypeByte | lengthTypeDWord<<2 | lengthTypeByte<<4 | lengthTypeByte<<6
	pos += 2
	binary.LittleEndian.PutUint16(packet[pos:], uint16(padding))
	pos += 2
	binary.LittleEndian.PutUint32(packet[pos:], sendTime)
	pos += 4
	pos += 2 // duration
	packet[pos] = byte(len(payloads)) | lengthTypeWord<<6
	pos++

	for _, p := range payloads {
		sn := p.StreamNumber & payloadStreamNumMask
		if p.Keyframe {
			sn |= payloadKeyframeFlag
		}
		packet[pos] = sn
		packet[pos+1] = byte(p.ObjectNumber)
		binary.LittleEndian.PutUint32(packet[pos+2:], p.Offset)
		packet[pos+6] = 8
		binary.LittleEndian.PutUint32(packet[pos+7:], p.ObjectLength)
		binary.LittleEndian.PutUint32(packet[pos+11:], p.PresentationTime)
		binary.LittleEndian.PutUint16(packet[pos+15:], uint16(len(p.Data)))
		pos += payloadHeaderSize
		pos += copy(packet[pos:], p.Data)
	}

	return packet, nil
}
