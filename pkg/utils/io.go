package utils

import (
	"io"
	"log/slog"
)

// CloseWithLog c 를 닫고 실패하면 name 과 함께 에러 로그를 남긴다 (defer 용)
func CloseWithLog(c io.Closer, name string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		slog.Error("Failed to close resource", "resource", name, "err", err)
	}
}
