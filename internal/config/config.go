package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"asfdemux/pkg/demux"
)

// DefaultPath 설정 파일 기본 경로 (프로젝트 루트 기준)
var DefaultPath = filepath.Join("configs", "default.yaml")

const maxObjectSizeLimit = 1 << 30

type Config struct {
	Demux   DemuxConfig   `yaml:"demux"`
	API     APIConfig     `yaml:"api"`
	Logging LoggingConfig `yaml:"logging"`
}

type DemuxConfig struct {
	DropMalformedPackets bool   `yaml:"drop_malformed_packets"`
	MaxHeaderObjectSize  uint64 `yaml:"max_header_object_size"`
	MaxIndexObjectSize   uint64 `yaml:"max_index_object_size"`
	MaxObjectSize        uint64 `yaml:"max_object_size"` // 재조립 객체 하나의 최대 크기
}

type APIConfig struct {
	Port      int           `yaml:"port"`
	MediaRoot string        `yaml:"media_root"` // 조회 가능한 ASF 파일 디렉토리
	CacheTTL  time.Duration `yaml:"cache_ttl"`  // 열린 추출기 유지 시간
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// GetConfigWithDefaults returns default configuration values
func GetConfigWithDefaults() *Config {
	return &Config{
		Demux: DemuxConfig{
			DropMalformedPackets: false,
			MaxHeaderObjectSize:  demux.DefaultMaxHeaderObjectSize,
			MaxIndexObjectSize:   demux.DefaultMaxIndexObjectSize,
			MaxObjectSize:        demux.DefaultMaxObjectSize,
		},
		API: APIConfig{
			Port:      8080,
			MediaRoot: ".",
			CacheTTL:  5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from yaml file
// path 가 비어 있으면 DefaultPath 를 사용하고, 파일이 없으면 기본값을 그대로 쓴다.
func LoadConfig(path string) (*Config, error) {
	config := GetConfigWithDefaults()

	if path == "" {
		path = DefaultPath
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("Config file not found (%s), using default values:\n", path)
		config.print()
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 기본값 위에 덮어쓰기
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	fmt.Printf("Config loaded from %s:\n", path)
	config.print()
	return config, nil
}

func (c *Config) print() {
	fmt.Printf("  Drop Malformed Packets: %v\n", c.Demux.DropMalformedPackets)
	fmt.Printf("  Max Header Object Size: %d\n", c.Demux.MaxHeaderObjectSize)
	fmt.Printf("  Max Index Object Size: %d\n", c.Demux.MaxIndexObjectSize)
	fmt.Printf("  Max Object Size: %d\n", c.Demux.MaxObjectSize)
	fmt.Printf("  API Port: %d\n", c.API.Port)
	fmt.Printf("  Media Root: %s\n", c.API.MediaRoot)
	fmt.Printf("  Cache TTL: %v\n", c.API.CacheTTL)
	fmt.Printf("  Log Level: %s\n", c.Logging.Level)
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	// 객체 크기 한도 검증
	if c.Demux.MaxHeaderObjectSize < 30 {
		return fmt.Errorf("invalid max_header_object_size: %d (must be at least 30)", c.Demux.MaxHeaderObjectSize)
	}
	if c.Demux.MaxIndexObjectSize < 56 {
		return fmt.Errorf("invalid max_index_object_size: %d (must be at least 56)", c.Demux.MaxIndexObjectSize)
	}
	if c.Demux.MaxObjectSize == 0 || c.Demux.MaxObjectSize > maxObjectSizeLimit {
		return fmt.Errorf("invalid max_object_size: %d (must be between 1-%d)", c.Demux.MaxObjectSize, maxObjectSizeLimit)
	}

	// API 포트 검증
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api port: %d (must be between 1-65535)", c.API.Port)
	}

	if c.API.MediaRoot == "" {
		return fmt.Errorf("api media_root must not be empty")
	}

	if c.API.CacheTTL < time.Second {
		return fmt.Errorf("invalid api cache_ttl: %v (must be at least 1s)", c.API.CacheTTL)
	}

	// 로그 레벨 검증
	validLevels := []string{"debug", "info", "warn", "error"}
	levelValid := false
	for _, level := range validLevels {
		if strings.ToLower(c.Logging.Level) == level {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("invalid log level: %s (must be one of: %v)", c.Logging.Level, validLevels)
	}

	return nil
}

// ToDemuxOptions converts Config.Demux to demux.Options
func (c *Config) ToDemuxOptions() demux.Options {
	return demux.Options{
		DropMalformedPackets: c.Demux.DropMalformedPackets,
		MaxHeaderObjectSize:  c.Demux.MaxHeaderObjectSize,
		MaxIndexObjectSize:   c.Demux.MaxIndexObjectSize,
		MaxObjectSize:        c.Demux.MaxObjectSize,
	}
}

// GetSlogLevel returns slog.Level from config
func (c *Config) GetSlogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo // 기본값
	}
}
