package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Sock5Proxy struct {
	Host   string `yaml:"Host" env:"SOCKS5_PROXY_HOST"`
	Port   int32  `yaml:"Port" env:"SOCKS5_PROXY_PORT"`
	Enable bool   `yaml:"Enable" env:"SOCKS5_PROXY_ENABLE"`
}

type HTTP struct {
	Host           string   `yaml:"Host" env:"HTTP_HOST"`
	Port           int      `yaml:"Port" env:"HTTP_PORT"`
	AllowedOrigins []string `yaml:"AllowedOrigins" env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
}

// Transcription 语音转写服务（兼容 OpenAI audio/transcriptions 接口，默认 Groq）
type Transcription struct {
	BaseURL        string `yaml:"BaseURL" env:"GROQ_BASE_URL"`
	APIKey         string `yaml:"APIKey" env:"GROQ_API_KEY"`
	Model          string `yaml:"Model" env:"WHISPER_MODEL"`
	Language       string `yaml:"Language" env:"WHISPER_LANGUAGE"` // 可选，如 pt
	TimeoutSeconds int    `yaml:"TimeoutSeconds" env:"TRANSCRIPTION_TIMEOUT_SECONDS"`
}

// LLM 大模型服务（兼容 OpenAI chat/completions 接口）
type LLM struct {
	BaseURL        string  `yaml:"BaseURL" env:"ANTHROPIC_BASE_URL"` // 兼容 OpenAI API 的端点
	APIKey         string  `yaml:"APIKey" env:"ANTHROPIC_API_KEY"`
	Model          string  `yaml:"Model" env:"CLAUDE_MODEL"`
	MaxTokens      int     `yaml:"MaxTokens" env:"LLM_MAX_TOKENS"` // 单次回复的最大 token 数
	Temperature    float32 `yaml:"Temperature" env:"LLM_TEMPERATURE"`
	TimeoutSeconds int     `yaml:"TimeoutSeconds" env:"LLM_TIMEOUT_SECONDS"`
}

type Config struct {
	Sock5Proxy    Sock5Proxy    `yaml:"Sock5Proxy"`
	HTTP          HTTP          `yaml:"HTTP"`
	Transcription Transcription `yaml:"Transcription"`
	LLM           LLM           `yaml:"LLM"`
}

const (
	TranscriptionKeyEnv = "GROQ_API_KEY"
	LLMKeyEnv           = "ANTHROPIC_API_KEY"
)

// Default 返回填充了默认值的配置
func Default() *Config {
	return &Config{
		HTTP: HTTP{
			Host:           "0.0.0.0",
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Transcription: Transcription{
			BaseURL:        "https://api.groq.com/openai/v1",
			Model:          "whisper-large-v3-turbo",
			TimeoutSeconds: 120,
		},
		LLM: LLM{
			BaseURL:        "https://api.anthropic.com/v1/",
			Model:          "claude-sonnet-4-20250514",
			MaxTokens:      2048,
			TimeoutSeconds: 120,
		},
	}
}

// LoadEnvFiles 加载 .env 文件（存在时），不覆盖已有的环境变量
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env", ".env.local"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("加载 %s 失败: %w", p, err)
		}
	}
	return nil
}

// Load 依次应用默认值、配置文件（可选）和环境变量
func Load(filename string) (*Config, error) {
	c := Default()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, c); err != nil {
				return nil, fmt.Errorf("解析配置文件失败: %w", err)
			}
		}
	}

	if err := cleanenv.ReadEnv(c); err != nil {
		return nil, fmt.Errorf("读取环境变量失败: %w", err)
	}

	// 验证配置
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate 验证配置的有效性
// API Key 缺失不在此处报错，而是在调用对应服务时返回 ConfigurationError
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP.Port 必须在 1-65535 之间")
	}

	if c.Transcription.BaseURL == "" {
		return fmt.Errorf("Transcription.BaseURL 不能为空")
	}
	if c.Transcription.Model == "" {
		return fmt.Errorf("Transcription.Model 不能为空")
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		return fmt.Errorf("Transcription.TimeoutSeconds 必须大于 0")
	}

	if c.LLM.BaseURL == "" {
		return fmt.Errorf("LLM.BaseURL 不能为空")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("LLM.Model 不能为空")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM.MaxTokens 必须大于 0")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("LLM.Temperature 必须在 0-2 之间")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return fmt.Errorf("LLM.TimeoutSeconds 必须大于 0")
	}

	if c.Sock5Proxy.Enable {
		if c.Sock5Proxy.Host == "" {
			return fmt.Errorf("Sock5Proxy.Host 不能为空（当 Enable 为 true 时）")
		}
		if c.Sock5Proxy.Port <= 0 {
			return fmt.Errorf("Sock5Proxy.Port 必须大于 0（当 Enable 为 true 时）")
		}
	}

	return nil
}

// MissingKeys 返回未配置的 API Key 对应的环境变量名
func (c *Config) MissingKeys() []string {
	var missing []string
	if c.Transcription.APIKey == "" {
		missing = append(missing, TranscriptionKeyEnv)
	}
	if c.LLM.APIKey == "" {
		missing = append(missing, LLMKeyEnv)
	}
	return missing
}

func (c *Transcription) RequireKey() error {
	if c.APIKey == "" {
		return &ConfigurationError{Key: TranscriptionKeyEnv}
	}
	return nil
}

func (c *LLM) RequireKey() error {
	if c.APIKey == "" {
		return &ConfigurationError{Key: LLMKeyEnv}
	}
	return nil
}
