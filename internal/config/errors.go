package config

import "fmt"

// ConfigErrorType 配置错误类型
type ConfigErrorType string

const (
	ConfigErrorTypeFormat     ConfigErrorType = "format_error"     // 格式错误
	ConfigErrorTypeValidation ConfigErrorType = "validation_error" // 验证错误
	ConfigErrorTypeFile       ConfigErrorType = "file_error"       // 文件错误
)

// ConfigError 配置错误结构
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Field   string
	Value   interface{}
	Err     error
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config %s: %s", e.Type, e.Message)
	if e.Field != "" {
		msg = fmt.Sprintf("config %s: field %s: %s", e.Type, e.Field, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap 实现错误包装接口
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError 创建配置错误
func NewConfigError(errorType ConfigErrorType, message string) *ConfigError {
	return &ConfigError{
		Type:    errorType,
		Message: message,
	}
}

// NewConfigErrorWithField 创建带字段信息的配置错误
func NewConfigErrorWithField(errorType ConfigErrorType, field string, message string, value interface{}) *ConfigError {
	return &ConfigError{
		Type:    errorType,
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewConfigErrorWithCause 创建带原因的配置错误
func NewConfigErrorWithCause(errorType ConfigErrorType, message string, cause error) *ConfigError {
	return &ConfigError{
		Type:    errorType,
		Message: message,
		Err:     cause,
	}
}
