package demux

import "sync/atomic"

// Stats 추출기 누적 통계
type Stats struct {
	PacketsRead      uint64 `json:"packets_read"`
	PacketsDropped   uint64 `json:"packets_dropped"`   // 디코딩 실패로 건너뛴 패킷
	PayloadsSkipped  uint64 `json:"payloads_skipped"`  // 비활성/알 수 없는 트랙, 탐색 지점 이전 객체
	PayloadsDropped  uint64 `json:"payloads_dropped"`  // 불연속/손상 조각, 한도 초과 객체
	BuffersQueued    uint64 `json:"buffers_queued"`
	Seeks            uint64 `json:"seeks"`
	SeeksCoalesced   uint64 `json:"seeks_coalesced"` // 다른 트랙의 탐색으로 대체된 요청
	CursorOffset     uint64 `json:"cursor_offset"`
	PacketsRemaining uint64 `json:"packets_remaining"`
}

type counters struct {
	packetsRead     atomic.Uint64
	packetsDropped  atomic.Uint64
	payloadsSkipped atomic.Uint64
	payloadsDropped atomic.Uint64
	buffersQueued   atomic.Uint64
	seeks           atomic.Uint64
	seeksCoalesced  atomic.Uint64
}
