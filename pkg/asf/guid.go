package asf

import (
	"strings"

	"github.com/google/uuid"
)

// GUID ASF 객체 식별자 (디스크 바이트 순서)
//
// ASF는 GUID의 앞 세 필드를 리틀엔디언으로 저장하므로 RFC 4122 표기와
// 바이트 순서가 다르다. 변환은 uuid.UUID를 거친다.
type GUID [16]byte

// 객체 GUID 정의
var (
	GUIDHeaderObject             = mustGUID("75B22630-668E-11CF-A6D9-00AA0062CE6C")
	GUIDDataObject               = mustGUID("75B22636-668E-11CF-A6D9-00AA0062CE6C")
	GUIDSimpleIndexObject        = mustGUID("33000890-E5B1-11CF-89F4-00A0C90349CB")
	GUIDIndexObject              = mustGUID("D6E229D3-35DA-11D1-9034-00A0C90349BE")
	GUIDFilePropertiesObject     = mustGUID("8CABDCA1-A947-11CF-8EE4-00C00C205365")
	GUIDStreamPropertiesObject   = mustGUID("B7DC0791-A9B7-11CF-8EE6-00C00C205365")
	GUIDHeaderExtensionObject    = mustGUID("5FBF03B5-A92E-11CF-8EE3-00C00C205365")
	GUIDExtendedStreamProperties = mustGUID("14E6A5CB-C672-4332-8399-A96952065B5A")
	GUIDContentEncryptionObject  = mustGUID("2211B3FB-BD23-11D2-B4B7-00A0C955FC6E")
	GUIDHeaderExtensionReserved1 = mustGUID("ABD3D211-A9BA-11CF-8EE6-00C00C205365")

	// 스트림 타입
	GUIDAudioMedia = mustGUID("F8699E40-5B4D-11CF-A8FD-00805F5C442B")
	GUIDVideoMedia = mustGUID("BC19EFC0-5B4D-11CF-A8FD-00805F5C442B")

	// 에러 정정 타입
	GUIDNoErrorCorrection = mustGUID("20FB5700-5B55-11CF-A8FD-00805F5C442B")
)

func mustGUID(s string) GUID {
	return GUIDFromUUID(uuid.MustParse(s))
}

// GUIDFromUUID converts a canonical UUID into ASF on-disk byte order.
func GUIDFromUUID(u uuid.UUID) GUID {
	var g GUID
	g[0], g[1], g[2], g[3] = u[3], u[2], u[1], u[0]
	g[4], g[5] = u[5], u[4]
	g[6], g[7] = u[7], u[6]
	copy(g[8:], u[8:])
	return g
}

// UUID returns the canonical form of g.
func (g GUID) UUID() uuid.UUID {
	var u uuid.UUID
	u[0], u[1], u[2], u[3] = g[3], g[2], g[1], g[0]
	u[4], u[5] = g[5], g[4]
	u[6], u[7] = g[7], g[6]
	copy(u[8:], g[8:])
	return u
}

func (g GUID) String() string {
	return strings.ToUpper(g.UUID().String())
}

// readGUID data 앞 16바이트를 GUID로 읽음
func readGUID(data []byte) GUID {
	var g GUID
	copy(g[:], data[:16])
	return g
}

// IsHeaderObject reports whether data starts with the header object GUID.
func IsHeaderObject(data []byte) bool {
	return len(data) >= 16 && readGUID(data) == GUIDHeaderObject
}

// IsSimpleIndexObject reports whether data starts with the simple index object GUID.
func IsSimpleIndexObject(data []byte) bool {
	return len(data) >= 16 && readGUID(data) == GUIDSimpleIndexObject
}
