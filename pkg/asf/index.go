package asf

import (
	"encoding/binary"
)

// parseSimpleIndexObject 단순 인덱스 객체 파싱
func parseSimpleIndexObject(data []byte) (*SimpleIndex, error) {
	if len(data) < SimpleIndexHeaderSize {
		return nil, newParseError("simple index", ErrBufferTooSmall, 0, data)
	}

	guid, size, err := parseObjectHeader(data)
	if err != nil {
		return nil, err
	}
	if guid != GUIDSimpleIndexObject {
		return nil, newParseError("simple index", ErrInvalidGUID, 0, data)
	}
	if size > uint64(len(data)) {
		return nil, newParseError("simple index", ErrInvalidObjectSize, 16, data)
	}

	index := &SimpleIndex{
		FileID:         readGUID(data[24:40]),
		Interval:       binary.LittleEndian.Uint64(data[40:48]),
		MaxPacketCount: binary.LittleEndian.Uint32(data[48:52]),
	}
	count := uint64(binary.LittleEndian.Uint32(data[52:56]))
	if index.Interval == 0 || count == 0 {
		return nil, newParseError("simple index", ErrInvalidIndexObject, 40, data[40:56])
	}
	if SimpleIndexHeaderSize+count*SimpleIndexEntrySize > size {
		return nil, newParseError("simple index", ErrInvalidObjectSize, 52, data[52:56])
	}

	index.Entries = make([]SimpleIndexEntry, count)
	pos := SimpleIndexHeaderSize
	for i := range index.Entries {
		index.Entries[i] = SimpleIndexEntry{
			PacketNumber: binary.LittleEndian.Uint32(data[pos : pos+4]),
			PacketCount:  binary.LittleEndian.Uint16(data[pos+4 : pos+6]),
		}
		pos += SimpleIndexEntrySize
	}

	return index, nil
}

// Lookup 인덱스 시간(100ns, preroll 포함)을 패킷 번호로 변환
//
// nextSync 이면 요청 시간 이후의 가장 가까운 엔트리를, 아니면 이전 엔트리를 고른다.
// 반환 시간은 선택된 엔트리의 인덱스 시간이다.
func (idx *SimpleIndex) Lookup(t uint64, nextSync bool) (uint32, uint64, error) {
	if idx == nil || len(idx.Entries) == 0 || idx.Interval == 0 {
		return 0, 0, ErrIndexNotLoaded
	}

	i := t / idx.Interval
	if nextSync && t%idx.Interval != 0 {
		i++
	}
	if i >= uint64(len(idx.Entries)) {
		return 0, 0, ErrSeekOutOfRange
	}

	return idx.Entries[i].PacketNumber, i * idx.Interval, nil
}

// createSimpleIndexObject 단순 인덱스 객체 직렬화
func createSimpleIndexObject(idx *SimpleIndex) []byte {
	size := SimpleIndexHeaderSize + len(idx.Entries)*SimpleIndexEntrySize
	data := make([]byte, size)

	copy(data[0:16], GUIDSimpleIndexObject[:])
	binary.LittleEndian.PutUint64(data[16:24], uint64(size))
	copy(data[24:40], idx.FileID[:])
	binary.LittleEndian.PutUint64(data[40:48], idx.Interval)
	binary.LittleEndian.PutUint32(data[48:52], idx.MaxPacketCount)
	binary.LittleEndian.PutUint32(data[52:56], uint32(len(idx.Entries)))

	pos := SimpleIndexHeaderSize
	for _, e := range idx.Entries {
		binary.LittleEndian.PutUint32(data[pos:pos+4], e.PacketNumber)
		binary.LittleEndian.PutUint16(data[pos+4:pos+6], e.PacketCount)
		pos += SimpleIndexEntrySize
	}
	return data
}
