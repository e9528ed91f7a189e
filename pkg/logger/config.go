package logger

import "log/slog"

type Backend string

const (
	BackendStd Backend = "std" // текстовый handler, для dev
	BackendZap Backend = "zap" // JSON через slog-zap, для stage/prod
)

type Config struct {
	Service    string
	Version    string
	InstanceID string

	Level   slog.Level
	Env     Env
	Backend Backend
	Debug   bool

	// Sampling для zap при всплесках логов
	SampleInitial    int
	SampleThereafter int

	AddSource bool
}
