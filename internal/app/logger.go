package app

import (
	"io"
	"log/slog"
	"os"

	"asfdemux/internal/config"
)

// InitLogger 설정의 로그 레벨로 기본 slog 로거를 설치 (stderr 텍스트 출력)
func InitLogger(cfg *config.Config) {
	slog.SetDefault(NewLogger(os.Stderr, cfg.GetSlogLevel()))
}

// NewLogger w 에 쓰는 텍스트 로거
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
