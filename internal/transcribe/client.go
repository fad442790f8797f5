package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/fachebot/docscribe/internal/config"
	"github.com/fachebot/docscribe/internal/logger"
	"github.com/sashabaranov/go-openai"
)

// audioClientInterface 定义语音转写客户端接口，便于测试
type audioClientInterface interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

type Client struct {
	config      *config.Transcription
	audioClient audioClientInterface
	timeout     time.Duration
}

// NewClient httpClient 为空时使用默认 HTTP 客户端
func NewClient(cfg *config.Transcription, httpClient *http.Client) *Client {
	openaiConfig := openai.DefaultConfig(cfg.APIKey)
	openaiConfig.BaseURL = cfg.BaseURL
	if httpClient != nil {
		openaiConfig.HTTPClient = httpClient
	}

	return &Client{
		config:      cfg,
		audioClient: openai.NewClientWithConfig(openaiConfig),
		timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// Validate 检查音频是否可以提交，返回识别出的格式。不发起网络请求
func Validate(audio Audio) (string, error) {
	if audio.Size() == 0 {
		return "", &Error{Kind: KindEmptyResult, Err: fmt.Errorf("音频内容为空")}
	}
	if audio.Size() > MaxAudioSize {
		return "", &Error{Kind: KindPayloadTooLarge, Err: fmt.Errorf("实际大小 %d 字节", audio.Size())}
	}
	format, err := DetectFormat(audio)
	if err != nil {
		return "", &Error{Kind: KindUnsupportedFormat, Err: err}
	}
	return format, nil
}

// Transcribe 将音频提交给转写服务，返回转写文本
// 空结果以 KindEmptyResult 错误返回，与有内容的成功结果区分
func (c *Client) Transcribe(ctx context.Context, audio Audio) (string, error) {
	if err := c.config.RequireKey(); err != nil {
		return "", err
	}

	format, err := Validate(audio)
	if err != nil {
		return "", err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	filename := uploadFilename(audio.Filename, format)
	logger.Debugf("[Transcribe] 提交音频 %s (%s, %d 字节), 模型 %s", filename, format, audio.Size(), c.config.Model)

	req := openai.AudioRequest{
		Model:       c.config.Model,
		FilePath:    filename,
		Reader:      bytes.NewReader(audio.Data),
		Temperature: math.SmallestNonzeroFloat32,
		Language:    c.config.Language,
		Format:      openai.AudioResponseFormatVerboseJSON,
	}

	start := time.Now()
	resp, err := c.audioClient.CreateTranscription(ctx, req)
	if err != nil {
		return "", &Error{Kind: KindServiceUnavailable, Err: fmt.Errorf("调用转写 API 失败: %w", err)}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", &Error{Kind: KindEmptyResult}
	}

	logger.Infof("[Transcribe] 转写完成, 耗时 %s, %d 个字符", time.Since(start).Round(time.Millisecond), len(text))
	return text, nil
}
