package demux

import "fmt"

// 기본값
const (
	DefaultMaxHeaderObjectSize = 16 << 20
	DefaultMaxIndexObjectSize  = 64 << 20
	DefaultMaxObjectSize       = 32 << 20
)

// Options 추출기 설정
type Options struct {
	// 디코딩에 실패한 데이터 패킷을 건너뛰고 다음 패킷을 계속 읽는다.
	// false 이면 ErrMalformed 로 읽기를 끝낸다.
	DropMalformedPackets bool

	// 이보다 큰 헤더 객체는 손상된 것으로 본다 (0 이면 기본값)
	MaxHeaderObjectSize uint64

	// 이보다 큰 단순 인덱스 객체는 읽지 않고 탐색 불가로 처리 (0 이면 기본값)
	MaxIndexObjectSize uint64

	// 페이로드가 선언한 객체 길이가 이보다 크면 버퍼를 만들지 않고 버린다 (0 이면 기본값)
	MaxObjectSize uint64
}

func (o Options) withDefaults() Options {
	if o.MaxHeaderObjectSize == 0 {
		o.MaxHeaderObjectSize = DefaultMaxHeaderObjectSize
	}
	if o.MaxIndexObjectSize == 0 {
		o.MaxIndexObjectSize = DefaultMaxIndexObjectSize
	}
	if o.MaxObjectSize == 0 {
		o.MaxObjectSize = DefaultMaxObjectSize
	}
	return o
}

// SeekMode 탐색 모드
type SeekMode uint8

const (
	// SeekPreviousSync 요청 시간 이전의 가장 가까운 동기 지점
	SeekPreviousSync SeekMode = iota
	// SeekNextSync 요청 시간 이후의 가장 가까운 동기 지점
	SeekNextSync
	// SeekClosestSync 가장 가까운 동기 지점 (이전 동기 지점으로 처리)
	SeekClosestSync
	// SeekClosest 가장 가까운 샘플 (이전 동기 지점으로 처리)
	SeekClosest
)

func (m SeekMode) String() string {
	switch m {
	case SeekPreviousSync:
		return "previous_sync"
	case SeekNextSync:
		return "next_sync"
	case SeekClosestSync:
		return "closest_sync"
	case SeekClosest:
		return "closest"
	default:
		return "unknown"
	}
}

// ParseSeekMode String 의 역변환 (빈 문자열은 SeekPreviousSync)
func ParseSeekMode(s string) (SeekMode, error) {
	switch s {
	case "", "previous_sync":
		return SeekPreviousSync, nil
	case "next_sync":
		return SeekNextSync, nil
	case "closest_sync":
		return SeekClosestSync, nil
	case "closest":
		return SeekClosest, nil
	default:
		return 0, fmt.Errorf("unknown seek mode %q", s)
	}
}

// ReadOptions 읽기 요청 옵션 (nil 이면 탐색 없음)
type ReadOptions struct {
	SeekTimeUs int64
	Mode       SeekMode
}

// SeekTo 탐색 요청 생성
func SeekTo(timeUs int64, mode SeekMode) *ReadOptions {
	return &ReadOptions{SeekTimeUs: timeUs, Mode: mode}
}
