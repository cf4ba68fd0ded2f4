package demux

import (
	"errors"
	"io"
)

// 추출기 에러
var (
	ErrIO              = errors.New("demux: I/O failure")
	ErrMalformed       = errors.New("demux: malformed container")
	ErrUnsupported     = errors.New("demux: content has neither audio nor video")
	ErrEndOfStream     = io.EOF
	ErrSeekUnsupported = errors.New("demux: seeking not supported")
	ErrInvalidTrack    = errors.New("demux: invalid track")
	ErrClosed          = errors.New("demux: extractor closed")
)
