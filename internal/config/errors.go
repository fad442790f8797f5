package config

import "fmt"

// ConfigurationError API Key 缺失或无效。只影响当前请求，不终止进程
type ConfigurationError struct {
	Key  string
	Hint string
}

func (e *ConfigurationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("配置错误: %s 未设置, %s", e.Key, e.Hint)
	}
	return fmt.Sprintf("配置错误: %s 未设置", e.Key)
}

// Guidance 面向用户的配置提示
func (e *ConfigurationError) Guidance() string {
	return fmt.Sprintf("Configure %s no arquivo .env, em etc/config.yaml ou como variável de ambiente.", e.Key)
}
