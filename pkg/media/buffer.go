package media

import (
	"fmt"
)

// Meta 버퍼에 붙는 샘플 속성
type Meta struct {
	TimeUs int64 // presentation timestamp (마이크로초)
	IsSync bool  // 동기(키프레임) 샘플 여부
}

// Buffer 참조 카운트 할당 위의 (offset, length) 뷰
//
// 여러 Buffer 가 하나의 할당을 복사 없이 공유할 수 있고,
// 할당은 마지막 뷰가 Release 될 때 풀로 반납된다.
// 하나의 Buffer 값은 한 고루틴만 사용해야 한다.
type Buffer struct {
	alloc  *allocation
	offset int
	length int
	meta   Meta
}

// GetBuffer size 바이트 뷰를 가진 새 버퍼 (할당은 BlockSize 배수)
func GetBuffer(size int) *Buffer {
	if size < 0 {
		size = 0
	}
	return &Buffer{alloc: allocate(size), length: size}
}

// Data 현재 뷰 범위의 바이트
func (b *Buffer) Data() []byte {
	if b == nil || b.alloc == nil || b.alloc.data == nil {
		return nil
	}
	return b.alloc.data[b.offset : b.offset+b.length]
}

// Raw 뷰와 무관한 전체 할당 (재조립 시 오프셋 쓰기용)
func (b *Buffer) Raw() []byte {
	if b == nil || b.alloc == nil {
		return nil
	}
	return b.alloc.data
}

// Len 뷰 길이
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return b.length
}

// Cap 할당 전체 크기
func (b *Buffer) Cap() int {
	if b == nil || b.alloc == nil {
		return 0
	}
	return len(b.alloc.data)
}

// Range 뷰의 (offset, length)
func (b *Buffer) Range() (int, int) {
	if b == nil {
		return 0, 0
	}
	return b.offset, b.length
}

// SetRange 뷰 범위 변경
func (b *Buffer) SetRange(offset, length int) error {
	if b == nil || b.alloc == nil {
		return ErrInvalidRange
	}
	if offset < 0 || length < 0 || offset+length > len(b.alloc.data) {
		return fmt.Errorf("%w: [%d, %d) of %d", ErrInvalidRange, offset, offset+length, len(b.alloc.data))
	}
	b.offset = offset
	b.length = length
	return nil
}

// Meta 샘플 속성
func (b *Buffer) Meta() Meta {
	if b == nil {
		return Meta{}
	}
	return b.meta
}

// SetMeta 샘플 속성 설정
func (b *Buffer) SetMeta(m Meta) {
	if b != nil {
		b.meta = m
	}
}

// RefCount 할당의 현재 참조 수
func (b *Buffer) RefCount() int32 {
	if b == nil || b.alloc == nil {
		return 0
	}
	return b.alloc.refs.Load()
}

// Clone 같은 할당을 공유하는 독립 뷰 생성 (복사 없음)
func (b *Buffer) Clone() *Buffer {
	if b == nil || b.alloc == nil {
		return nil
	}
	b.alloc.retain()
	return &Buffer{alloc: b.alloc, offset: b.offset, length: b.length, meta: b.meta}
}

// Release 참조 하나를 반납, 마지막 참조면 할당을 풀에 돌려준다
func (b *Buffer) Release() {
	if b == nil || b.alloc == nil {
		return
	}
	b.alloc.release()
}
