package demux

import (
	"fmt"
	"log/slog"
)

// seek 요청 시간에 해당하는 패킷으로 커서를 옮기고 모든 트랙 큐를 비운다
//
// 하나의 탐색은 활성 트랙마다 한 번씩 요청되므로, 실제 탐색은 처음 요청한 트랙에서만
// 수행하고 나머지 트랙에는 완료 표시를 남긴다. 표시된 트랙의 다음 요청은 표시만 지운다.
func (e *Extractor) seek(t *track, opts *ReadOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if t.seekCompleted {
		t.seekCompleted = false
		e.stats.seeksCoalesced.Add(1)
		return nil
	}
	if !e.seekable {
		return ErrSeekUnsupported
	}

	timeUs := opts.SeekTimeUs
	if timeUs < 0 {
		timeUs = 0
	}
	// 이전 동기 지점 외 모드는 다음 동기 지점만 구분한다
	nextSync := opts.Mode == SeekNextSync

	packet, achieved, err := e.parser.TimeToPacket(uint64(timeUs)*10, nextSync)
	if err != nil {
		slog.Debug("Seek target not found", "timeUs", timeUs, "mode", opts.Mode, "err", err)
		return fmt.Errorf("%w: seek to %dus: %v", ErrEndOfStream, timeUs, err)
	}

	cursor := e.begin + uint64(packet)*uint64(e.packetSize)
	if cursor > e.end {
		slog.Debug("Seek target beyond data object", "timeUs", timeUs, "packet", packet)
		return fmt.Errorf("%w: seek to %dus: packet %d beyond data object", ErrEndOfStream, timeUs, packet)
	}
	e.cursor = cursor

	// 인덱스 엔트리 패킷에는 도달 시간보다 앞선 객체가 섞여 있을 수 있다
	achievedUs := int64(achieved / 10)

	// 트랙 락은 한 번에 하나씩만 잡는다
	flushed := 0
	for _, other := range e.tracks.tracks {
		flushed += other.flush(achievedUs)
		if other != t {
			other.seekCompleted = true
		}
	}
	e.stats.seeks.Add(1)

	slog.Debug("Seek completed",
		"track", t.index,
		"timeUs", timeUs,
		"mode", opts.Mode,
		"achievedUs", achievedUs,
		"packet", packet,
		"flushedBuffers", flushed)
	return nil
}
