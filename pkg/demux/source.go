package demux

import (
	"asfdemux/pkg/media"
)

// Source 활성화된 트랙 하나의 읽기 핸들
type Source struct {
	extractor *Extractor
	track     *track
}

// Index 트랙 위치
func (s *Source) Index() int {
	return s.track.index
}

// Format 트랙 디스크립터
func (s *Source) Format() media.Format {
	return s.track.format
}

// Read 다음 샘플 버퍼 (반환된 버퍼는 호출자가 Release 해야 한다)
func (s *Source) Read(opts *ReadOptions) (*media.Buffer, error) {
	return s.extractor.Read(s.track.index, opts)
}
