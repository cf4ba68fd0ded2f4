package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"asfdemux/pkg/demux"
	"asfdemux/pkg/media"
)

const (
	defaultSampleCount = 16
	maxSampleCount     = 1024
)

// ErrorResponse 에러 응답 본문
type ErrorResponse struct {
	Error string `json:"error"`
}

// InfoResponse GET /api/v1/files/:name
type InfoResponse struct {
	Name      string                `json:"name"`
	Container media.ContainerFormat `json:"container"`
	Tracks    []TrackInfo           `json:"tracks"`
}

// TrackInfo 트랙 디스크립터와 종류
type TrackInfo struct {
	Index int    `json:"index"`
	Type  string `json:"type"`
	media.Format
}

// SampleInfo 샘플 버퍼 하나의 요약
type SampleInfo struct {
	TimeUs int64 `json:"time_us"`
	Sync   bool  `json:"sync"`
	Offset int   `json:"offset"`
	Size   int   `json:"size"`
}

// SamplesResponse GET /api/v1/files/:name/tracks/:track/samples
type SamplesResponse struct {
	Track       int          `json:"track"`
	Samples     []SampleInfo `json:"samples"`
	EndOfStream bool         `json:"end_of_stream"`
}

// HealthHandler handles GET /api/v1/health
func (s *Server) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"extractors": s.extractors.count(),
	})
}

// InfoHandler handles GET /api/v1/files/:name
func (s *Server) InfoHandler(c *gin.Context) {
	ce, ok := s.extractor(c)
	if !ok {
		return
	}

	ce.mu.Lock()
	defer ce.mu.Unlock()

	e := ce.extractor
	resp := InfoResponse{
		Name:      ce.name,
		Container: e.Metadata(),
		Tracks:    make([]TrackInfo, 0, e.CountTracks()),
	}
	for i := 0; i < e.CountTracks(); i++ {
		f, err := e.TrackFormat(i)
		if err != nil {
			respondError(c, err)
			return
		}
		resp.Tracks = append(resp.Tracks, TrackInfo{Index: i, Type: f.Type.String(), Format: f})
	}

	c.JSON(http.StatusOK, resp)
}

// StatsHandler handles GET /api/v1/files/:name/stats
func (s *Server) StatsHandler(c *gin.Context) {
	ce, ok := s.extractor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ce.extractor.Stats())
}

// CloseHandler handles DELETE /api/v1/files/:name
func (s *Server) CloseHandler(c *gin.Context) {
	if !s.extractors.evict(c.Param("name")) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "extractor not open"})
		return
	}
	c.Status(http.StatusNoContent)
}

// SamplesHandler handles GET /api/v1/files/:name/tracks/:track/samples
//
// 쿼리: count (기본 16), seek_us 와 mode (previous_sync, next_sync, closest_sync, closest).
// 같은 파일의 다음 요청은 이어서 읽는다.
func (s *Server) SamplesHandler(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("track"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid track index"})
		return
	}

	count := defaultSampleCount
	if v := c.Query("count"); v != "" {
		count, err = strconv.Atoi(v)
		if err != nil || count <= 0 || count > maxSampleCount {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "count must be between 1 and " + strconv.Itoa(maxSampleCount)})
			return
		}
	}

	var opts *demux.ReadOptions
	if v := c.Query("seek_us"); v != "" {
		timeUs, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid seek_us"})
			return
		}
		mode, err := demux.ParseSeekMode(c.Query("mode"))
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		opts = demux.SeekTo(timeUs, mode)
	}

	ce, ok := s.extractor(c)
	if !ok {
		return
	}

	ce.mu.Lock()
	defer ce.mu.Unlock()

	src, err := ce.extractor.Track(index)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := SamplesResponse{Track: index, Samples: make([]SampleInfo, 0, count)}
	for len(resp.Samples) < count {
		buf, err := src.Read(opts)
		opts = nil
		if errors.Is(err, demux.ErrEndOfStream) {
			resp.EndOfStream = true
			break
		}
		if err != nil {
			respondError(c, err)
			return
		}

		offset, size := buf.Range()
		meta := buf.Meta()
		resp.Samples = append(resp.Samples, SampleInfo{
			TimeUs: meta.TimeUs,
			Sync:   meta.IsSync,
			Offset: offset,
			Size:   size,
		})
		buf.Release()
	}

	c.JSON(http.StatusOK, resp)
}

// extractor 경로의 파일 이름으로 추출기 조회, 실패하면 응답을 쓰고 false
func (s *Server) extractor(c *gin.Context) (*cachedExtractor, bool) {
	ce, err := s.extractors.get(c.Param("name"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return ce, true
}

// respondError 에러 종류에 맞는 상태 코드로 응답
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errFileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, demux.ErrInvalidTrack):
		status = http.StatusNotFound
	case errors.Is(err, demux.ErrUnsupported):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, demux.ErrMalformed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, demux.ErrSeekUnsupported):
		status = http.StatusConflict
	case errors.Is(err, demux.ErrClosed):
		status = http.StatusGone
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
