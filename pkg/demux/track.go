package demux

import (
	"sync"
	"sync/atomic"

	"asfdemux/pkg/media"
)

// track 논리 스트림 하나의 상태
//
// queue 와 pending 은 mu 로 보호한다. seekCompleted 는 추출기의 패킷 영역 락으로 보호한다.
type track struct {
	index        int
	streamNumber uint8
	encrypted    bool
	format       media.Format

	active        atomic.Bool
	seekCompleted bool

	// 탐색 후 이 시간보다 앞선 객체는 건너뛴다 (0 이면 없음, mu 로 보호)
	skipBeforeUs int64

	mu     sync.Mutex
	queue  []*media.Buffer
	queued uint64 // 누적 큐 삽입 수

	// 재조립 중인 객체
	pending       *media.Buffer
	pendingObject uint32
	pendingLength uint32
	pendingNext   uint32 // 다음에 와야 할 조각의 오프셋
}

// push 완성된 버퍼를 큐에 추가 (mu 보유 상태에서 호출)
func (t *track) push(buf *media.Buffer) {
	t.queue = append(t.queue, buf)
	t.queued++
}

// pop 큐의 첫 버퍼를 꺼냄
func (t *track) pop() (*media.Buffer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.queue) == 0 {
		return nil, false
	}
	buf := t.queue[0]
	t.queue[0] = nil
	t.queue = t.queue[1:]
	return buf, true
}

// dropPending 재조립 중인 객체 폐기 (mu 보유 상태에서 호출)
func (t *track) dropPending() {
	if t.pending != nil {
		t.pending.Release()
		t.pending = nil
	}
	t.pendingObject = 0
	t.pendingLength = 0
	t.pendingNext = 0
}

// flush 큐와 재조립 버퍼를 모두 해제하고 skipBeforeUs 를 설정
func (t *track) flush(skipBeforeUs int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.skipBeforeUs = skipBeforeUs

	n := len(t.queue)
	for i, buf := range t.queue {
		buf.Release()
		t.queue[i] = nil
	}
	t.queue = t.queue[:0]
	t.dropPending()
	return n
}

// queueLen 큐에 대기 중인 버퍼 수
func (t *track) queueLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// trackRegistry 발견 순서대로 정렬된 트랙 목록
type trackRegistry struct {
	tracks   []*track
	byStream map[uint8]*track
}

func newTrackRegistry() *trackRegistry {
	return &trackRegistry{byStream: make(map[uint8]*track)}
}

func (r *trackRegistry) add(t *track) {
	t.index = len(r.tracks)
	r.tracks = append(r.tracks, t)
	r.byStream[t.streamNumber] = t
}

// byIndex 위치로 조회
func (r *trackRegistry) byIndex(index int) (*track, bool) {
	if index < 0 || index >= len(r.tracks) {
		return nil, false
	}
	return r.tracks[index], true
}

// lookup 스트림 번호로 조회
func (r *trackRegistry) lookup(streamNumber uint8) (*track, bool) {
	t, ok := r.byStream[streamNumber]
	return t, ok
}

func (r *trackRegistry) count() int {
	return len(r.tracks)
}
