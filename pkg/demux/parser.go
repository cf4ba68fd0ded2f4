package demux

import (
	"asfdemux/pkg/asf"
)

// ContainerParser 컨테이너 객체 디코더
//
// 모든 메서드는 코어가 이미 읽은 바이트를 받아 검증된 구조체를 돌려준다.
// 손상된 입력은 에러로 알리며 패닉하지 않는다.
type ContainerParser interface {
	ParseHeader(data []byte) (*asf.HeaderInfo, error)
	ParseDataObjectHeader(data []byte) (*asf.DataObjectHeader, error)
	ParseSimpleIndex(data []byte) (*asf.SimpleIndex, error)
	ParseDataPacket(data []byte) ([]asf.Payload, error)

	// TimeToPacket 재생 시간(100ns)을 패킷 번호와 실제 도달 시간(100ns)으로 변환
	TimeToPacket(t uint64, nextSync bool) (uint32, uint64, error)
}

var _ ContainerParser = (*asf.Parser)(nil)
