package svc

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fachebot/docscribe/internal/config"
	"github.com/fachebot/docscribe/internal/llm"
	"github.com/fachebot/docscribe/internal/logger"
	"github.com/fachebot/docscribe/internal/metrics"
	"github.com/fachebot/docscribe/internal/pipeline"
	"github.com/fachebot/docscribe/internal/summarizer"
	"github.com/fachebot/docscribe/internal/transcribe"

	"golang.org/x/net/proxy"
)

type ServiceContext struct {
	Config      *config.Config
	HTTPClient  *http.Client
	Transcriber *transcribe.Client
	LLMClient   *llm.Client
	Summarizer  *summarizer.Summarizer
	Pipeline    *pipeline.Pipeline
	Metrics     *metrics.Metrics
}

// newHTTPClient 创建外部 API 使用的 HTTP 客户端，启用时通过 SOCKS5 代理
// 超时由各客户端通过 context 控制
func newHTTPClient(c *config.Config) (*http.Client, error) {
	if !c.Sock5Proxy.Enable {
		return &http.Client{}, nil
	}

	socks5Proxy := fmt.Sprintf("%s:%d", c.Sock5Proxy.Host, c.Sock5Proxy.Port)
	dialer, err := proxy.SOCKS5("tcp", socks5Proxy, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("创建SOCKS5代理失败: %w", err)
	}

	transport := &http.Transport{
		Dial:                dialer.Dial,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{Transport: transport}, nil
}

func NewServiceContext(c *config.Config) (*ServiceContext, error) {
	httpClient, err := newHTTPClient(c)
	if err != nil {
		return nil, err
	}
	if c.Sock5Proxy.Enable {
		logger.Infof("[Svc] 外部请求经由 SOCKS5 代理 %s:%d", c.Sock5Proxy.Host, c.Sock5Proxy.Port)
	}

	if missing := c.MissingKeys(); len(missing) > 0 {
		logger.Warnf("[Svc] API Key 未配置: %v, 相关请求将返回配置错误", missing)
	}

	m := metrics.New()
	transcriber := transcribe.NewClient(&c.Transcription, httpClient)
	llmClient := llm.NewClient(&c.LLM, httpClient)
	summ := summarizer.NewSummarizer(llmClient)

	svcCtx := &ServiceContext{
		Config:      c,
		HTTPClient:  httpClient,
		Transcriber: transcriber,
		LLMClient:   llmClient,
		Summarizer:  summ,
		Pipeline:    pipeline.New(transcriber, summ, m),
		Metrics:     m,
	}
	return svcCtx, nil
}

func (svcCtx *ServiceContext) Close() {
	svcCtx.HTTPClient.CloseIdleConnections()
}
