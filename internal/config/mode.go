package config

import (
	"os"
	"strings"
)

// Mode 运行模式，决定上报器默认是否启用
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

// DebugEnvVar 开发模式环境变量，值为 "true" 时视为开发模式
var DebugEnvVar = "SCREENPIPE_ENV_DEBUG"

// DetectMode 根据编译标签和环境变量判断运行模式
func DetectMode() Mode {
	return modeFrom(buildDebug, os.Getenv(DebugEnvVar))
}

func modeFrom(debugBuild bool, env string) Mode {
	if debugBuild || strings.TrimSpace(env) == "true" {
		return ModeDevelopment
	}
	return ModeProduction
}

// EnabledByDefault 生产模式默认启用上报
func (m Mode) EnabledByDefault() bool {
	return m == ModeProduction
}
