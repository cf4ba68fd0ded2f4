package media

import (
	"sync"
	"sync/atomic"
)

// BlockSize 버퍼 할당 단위
// 재조립 버퍼는 객체 길이를 이 단위로 올림하여 할당한다.
const BlockSize = 4096

// 풀 크기 클래스 (BlockSize 배수)
var poolClasses = [...]int{
	BlockSize,      // 4KB
	4 * BlockSize,  // 16KB
	16 * BlockSize, // 64KB
	64 * BlockSize, // 256KB
	256 * BlockSize,
}

var pools [len(poolClasses)]sync.Pool

// 살아있는 할당 수 (누수 검사용)
var liveAllocations atomic.Int64

func init() {
	for i := range pools {
		size := poolClasses[i]
		pools[i].New = func() any {
			buf := make([]byte, size)
			return &buf
		}
	}
}

// allocation 여러 Buffer 뷰가 공유하는 참조 카운트 메모리
type allocation struct {
	data  []byte
	refs  atomic.Int32
	class int // 풀 클래스 인덱스, 풀 밖 할당이면 -1
	raw   *[]byte
}

// AlignSize n 을 BlockSize 배수로 올림
func AlignSize(n int) int {
	if n <= 0 {
		return BlockSize
	}
	return (n + BlockSize - 1) / BlockSize * BlockSize
}

func poolIndex(size int) int {
	for i, c := range poolClasses {
		if size <= c {
			return i
		}
	}
	return -1
}

// allocate size 이상인 BlockSize 배수 크기의 할당 생성 (참조 1)
func allocate(size int) *allocation {
	aligned := AlignSize(size)
	a := &allocation{class: poolIndex(aligned)}
	if a.class >= 0 {
		a.raw = pools[a.class].Get().(*[]byte)
		a.data = (*a.raw)[:aligned]
		clear(a.data)
	} else {
		a.data = make([]byte, aligned)
	}
	a.refs.Store(1)
	liveAllocations.Add(1)
	return a
}

func (a *allocation) retain() {
	a.refs.Add(1)
}

// release 마지막 참조가 해제되면 풀에 반납
func (a *allocation) release() {
	n := a.refs.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		panic("media: buffer released too many times")
	}
	liveAllocations.Add(-1)
	if a.class >= 0 {
		pools[a.class].Put(a.raw)
	}
	a.data = nil
	a.raw = nil
}

// LiveAllocations 아직 반납되지 않은 할당 수
func LiveAllocations() int64 {
	return liveAllocations.Load()
}
