// Package asf는 ASF (Advanced Systems Format) 컨테이너의 객체 파싱과 생성을 제공합니다.
// 헤더 객체, 데이터 객체 헤더, 데이터 패킷 페이로드, 단순 인덱스를 다룹니다.
package asf

import (
	"errors"
	"fmt"
)

// 공통 에러 정의
var (
	ErrBufferTooSmall     = errors.New("buffer too small")
	ErrInvalidGUID        = errors.New("unexpected object GUID")
	ErrInvalidObjectSize  = errors.New("invalid object size")
	ErrInvalidPacket      = errors.New("invalid data packet")
	ErrInvalidLengthType  = errors.New("invalid length type")
	ErrInvalidPacketSize  = errors.New("invalid data packet size")
	ErrNoStreams          = errors.New("no stream properties")
	ErrNoFileProperties   = errors.New("no file properties")
	ErrHeaderNotParsed    = errors.New("header object not parsed")
	ErrIndexNotLoaded     = errors.New("simple index not loaded")
	ErrSeekOutOfRange     = errors.New("seek time beyond last index entry")
	ErrInvalidIndexObject = errors.New("invalid simple index object")
)

// ParseError 파싱 에러 (상세 정보 포함)
type ParseError struct {
	Err    error  // 원본 에러
	Object string // 파싱 중이던 객체
	Offset int    // 에러 발생 위치
	Data   []byte // 관련 데이터 (디버깅용)
}

func (e *ParseError) Error() string {
	if e.Object != "" {
		return fmt.Sprintf("asf: %s parse error at offset %d: %v", e.Object, e.Offset, e.Err)
	}
	return fmt.Sprintf("asf: parse error at offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(object string, err error, offset int, data []byte) *ParseError {
	if len(data) > 16 {
		data = data[:16]
	}
	return &ParseError{Err: err, Object: object, Offset: offset, Data: data}
}

// ParseHeaderObject 헤더 객체 전체를 파싱
func ParseHeaderObject(data []byte) (*HeaderInfo, error) {
	return parseHeaderObject(data)
}

// ParseDataObjectHeader 데이터 객체 헤더(50바이트) 파싱
func ParseDataObjectHeader(data []byte) (*DataObjectHeader, error) {
	return parseDataObjectHeader(data)
}

// ParseSimpleIndexObject 단순 인덱스 객체 파싱
func ParseSimpleIndexObject(data []byte) (*SimpleIndex, error) {
	return parseSimpleIndexObject(data)
}

// ParseDataPacket 데이터 패킷 하나를 페이로드 목록으로 분해
func ParseDataPacket(data []byte, preroll uint64) ([]Payload, error) {
	return parseDataPacket(data, preroll)
}

// ParseObjectHeader 24바이트 객체 헤더(GUID + 크기) 파싱
func ParseObjectHeader(data []byte) (GUID, uint64, error) {
	return parseObjectHeader(data)
}
