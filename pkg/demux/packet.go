package demux

import (
	"fmt"
	"log/slog"

	"asfdemux/pkg/asf"
	"asfdemux/pkg/media"
)

// demuxNextPacket 현재 커서의 패킷 하나를 읽어 페이로드를 트랙으로 분배
//
// 커서는 페이로드를 처리하기 전에 한 패킷만큼 전진하므로, 처리 중 에러가
// 나도 같은 바이트를 다시 읽지 않는다.
func (e *Extractor) demuxNextPacket() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.cursor+uint64(e.packetSize) > e.end {
		slog.Debug("Data packets exhausted", "cursor", e.cursor, "end", e.end)
		return ErrEndOfStream
	}

	offset := e.cursor
	if err := e.readFull(e.packet, offset, "data packet"); err != nil {
		return err
	}
	e.cursor += uint64(e.packetSize)
	e.stats.packetsRead.Add(1)

	payloads, err := e.parser.ParseDataPacket(e.packet)
	if err != nil {
		if e.opts.DropMalformedPackets {
			e.stats.packetsDropped.Add(1)
			slog.Debug("Dropping malformed data packet", "offset", offset, "err", err)
			return nil
		}
		slog.Error("Failed to parse data packet", "offset", offset, "err", err)
		return fmt.Errorf("%w: data packet at offset %d: %w", ErrMalformed, offset, err)
	}

	for i := range payloads {
		e.routePayload(&payloads[i])
	}
	return nil
}

// routePayload 페이로드 하나를 트랙의 큐 또는 재조립 버퍼로 보냄
func (e *Extractor) routePayload(p *asf.Payload) {
	t, ok := e.tracks.lookup(p.StreamNumber)
	if !ok || !t.active.Load() {
		e.stats.payloadsSkipped.Add(1)
		return
	}

	length := uint32(len(p.Data))
	if uint64(p.Offset)+uint64(length) > uint64(p.ObjectLength) {
		e.dropPayload(p, "payload exceeds object length")
		return
	}
	if uint64(p.ObjectLength) > e.opts.MaxObjectSize {
		e.dropPayload(p, "object length exceeds limit")
		return
	}

	// 완전한 객체 또는 조각난 객체의 첫 조각
	if length == p.ObjectLength || p.Offset == 0 {
		timeUs := int64(p.PresentationTime) * 1000

		t.mu.Lock()
		defer t.mu.Unlock()

		// 탐색 직후 도달 시간보다 앞선 객체는 내보내지 않는다.
		// 인덱스가 가리키는 비디오 키프레임은 엔트리 시간보다 앞설 수 있으므로 예외.
		if timeUs < t.skipBeforeUs && !(p.Keyframe && t.format.Type == media.TypeVideo) {
			e.stats.payloadsSkipped.Add(1)
			return
		}
		t.skipBeforeUs = 0

		buf := media.GetBuffer(int(p.ObjectLength))
		copy(buf.Raw(), p.Data)
		buf.SetMeta(media.Meta{
			TimeUs: timeUs,
			IsSync: p.Keyframe,
		})

		if length == p.ObjectLength {
			t.push(buf)
			e.stats.buffersQueued.Add(1)
			return
		}

		if t.pending != nil {
			slog.Debug("Abandoning incomplete object",
				"stream", p.StreamNumber,
				"object", t.pendingObject,
				"received", t.pendingNext,
				"length", t.pendingLength)
			e.stats.payloadsDropped.Add(1)
			t.dropPending()
		}
		t.pending = buf
		t.pendingObject = p.ObjectNumber
		t.pendingLength = p.ObjectLength
		t.pendingNext = length

		// 암호화 트랙은 조각마다 해당 범위의 뷰를 바로 내보낸다
		if t.encrypted {
			e.pushFragmentView(t, 0, length)
		}
		return
	}

	// 중간 또는 마지막 조각
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending == nil {
		if int64(p.PresentationTime)*1000 < t.skipBeforeUs {
			e.stats.payloadsSkipped.Add(1)
			return
		}
		e.dropPayload(p, "corrupt or discontinuous data packet")
		return
	}
	if p.ObjectNumber != t.pendingObject || p.ObjectLength != t.pendingLength || p.Offset != t.pendingNext {
		e.dropPayload(p, "fragment does not continue object")
		t.dropPending()
		return
	}

	copy(t.pending.Raw()[p.Offset:], p.Data)
	end := p.Offset + length
	if end == p.ObjectLength {
		buf := t.pending
		if t.encrypted {
			_ = buf.SetRange(int(p.Offset), int(length))
		}
		t.pending = nil
		t.pendingNext = 0
		t.push(buf)
		e.stats.buffersQueued.Add(1)
		return
	}

	t.pendingNext = end
	if t.encrypted {
		e.pushFragmentView(t, p.Offset, length)
	}
}

// pushFragmentView 재조립 버퍼의 [offset, offset+length) 뷰를 큐에 추가 (t.mu 보유)
func (e *Extractor) pushFragmentView(t *track, offset, length uint32) {
	view := t.pending.Clone()
	_ = view.SetRange(int(offset), int(length))
	t.push(view)
	e.stats.buffersQueued.Add(1)
}

func (e *Extractor) dropPayload(p *asf.Payload, reason string) {
	e.stats.payloadsDropped.Add(1)
	slog.Debug("Dropping payload",
		"reason", reason,
		"stream", p.StreamNumber,
		"object", p.ObjectNumber,
		"offset", p.Offset,
		"size", len(p.Data),
		"objectLength", p.ObjectLength)
}
