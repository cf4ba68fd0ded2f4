package asf

import (
	"sync"
)

// hundredNsPerMs 1ms 당 100ns 틱 수
const hundredNsPerMs = 10000

// Parser ASF 컨테이너 파서
//
// 헤더를 먼저 파싱해야 데이터 패킷과 인덱스를 해석할 수 있다.
// 헤더 파싱 후에는 여러 고루틴에서 동시에 사용해도 안전하다.
type Parser struct {
	mu     sync.RWMutex
	header *HeaderInfo
	data   *DataObjectHeader
	index  *SimpleIndex
}

// NewParser 새 파서 생성
func NewParser() *Parser {
	return &Parser{}
}

// ParseHeader 헤더 객체를 파싱하고 결과를 보관
func (p *Parser) ParseHeader(data []byte) (*HeaderInfo, error) {
	info, err := parseHeaderObject(data)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.header = info
	p.index = nil
	p.mu.Unlock()
	return info, nil
}

// ParseDataObjectHeader 데이터 객체 헤더 파싱
func (p *Parser) ParseDataObjectHeader(data []byte) (*DataObjectHeader, error) {
	p.mu.RLock()
	header := p.header
	p.mu.RUnlock()
	if header == nil {
		return nil, ErrHeaderNotParsed
	}

	obj, err := parseDataObjectHeader(data)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.data = obj
	p.mu.Unlock()
	return obj, nil
}

// ParseSimpleIndex 단순 인덱스 객체를 파싱하고 시간 탐색에 사용하도록 보관
func (p *Parser) ParseSimpleIndex(data []byte) (*SimpleIndex, error) {
	p.mu.RLock()
	header := p.header
	p.mu.RUnlock()
	if header == nil {
		return nil, ErrHeaderNotParsed
	}

	index, err := parseSimpleIndexObject(data)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.index = index
	p.mu.Unlock()
	return index, nil
}

// ParseDataPacket 고정 크기 데이터 패킷 하나를 페이로드로 분해
// 페이로드의 presentation time 은 preroll 을 뺀 값이다.
func (p *Parser) ParseDataPacket(data []byte) ([]Payload, error) {
	p.mu.RLock()
	header := p.header
	p.mu.RUnlock()
	if header == nil {
		return nil, ErrHeaderNotParsed
	}
	if len(data) != int(header.PacketSize) {
		return nil, newParseError("data packet", ErrInvalidPacketSize, 0, data)
	}

	return parseDataPacket(data, header.Preroll)
}

// TimeToPacket 재생 시간(100ns, preroll 제외)에 해당하는 패킷 번호 조회
//
// 인덱스 시간은 preroll 을 포함하므로 조회 전에 더하고, 결과에서 다시 뺀다.
func (p *Parser) TimeToPacket(t uint64, nextSync bool) (uint32, uint64, error) {
	p.mu.RLock()
	header, index := p.header, p.index
	p.mu.RUnlock()
	if header == nil {
		return 0, 0, ErrHeaderNotParsed
	}
	if index == nil {
		return 0, 0, ErrIndexNotLoaded
	}

	preroll := header.Preroll * hundredNsPerMs
	packet, achieved, err := index.Lookup(t+preroll, nextSync)
	if err != nil {
		return 0, 0, err
	}
	if achieved < preroll {
		achieved = 0
	} else {
		achieved -= preroll
	}
	return packet, achieved, nil
}

// Header 마지막으로 파싱한 헤더 정보
func (p *Parser) Header() *HeaderInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.header
}

// Index 보관 중인 단순 인덱스 (없으면 nil)
func (p *Parser) Index() *SimpleIndex {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.index
}
