package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/fachebot/docscribe/internal/config"
	"github.com/fachebot/docscribe/internal/logger"
	"github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse 模型没有返回任何内容
var ErrEmptyResponse = errors.New("LLM API 返回空结果")

// openAIClientInterface 定义 OpenAI 客户端接口，便于测试
type openAIClientInterface interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// chatStream 流式响应，*openai.ChatCompletionStream 满足该接口
type chatStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

type streamOpener func(ctx context.Context, req openai.ChatCompletionRequest) (chatStream, error)

type Client struct {
	config       *config.LLM
	openaiClient openAIClientInterface
	openStream   streamOpener
	timeout      time.Duration
}

// ChatMessage 对话中的一条消息，Role 为 user 或 assistant
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewClient httpClient 为空时使用默认 HTTP 客户端
func NewClient(cfg *config.LLM, httpClient *http.Client) *Client {
	openaiConfig := openai.DefaultConfig(cfg.APIKey)
	openaiConfig.BaseURL = cfg.BaseURL
	if httpClient != nil {
		openaiConfig.HTTPClient = httpClient
	}
	oc := openai.NewClientWithConfig(openaiConfig)

	return &Client{
		config:       cfg,
		openaiClient: oc,
		openStream: func(ctx context.Context, req openai.ChatCompletionRequest) (chatStream, error) {
			stream, err := oc.CreateChatCompletionStream(ctx, req)
			if err != nil {
				return nil, err
			}
			return stream, nil
		},
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// estimateTokens 粗略估算文本的 token 数量，按单词数 * 1.3，下限为字符数的 1/4
func estimateTokens(text string) int {
	tokens := int(float64(len(strings.Fields(text))) * 1.3)
	if tokens < len(text)/4 {
		tokens = len(text) / 4
	}
	return tokens
}

// trimCodeFence 去掉模型回复外层的 markdown 代码块
func trimCodeFence(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// exceedsReplyBudget 输入明显长于回复上限时，总结很可能放不下
func (c *Client) exceedsReplyBudget(promptTokens int) bool {
	return c.config.MaxTokens > 0 && promptTokens > c.config.MaxTokens
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// temperature go-openai 会省略值为 0 的 temperature 字段，用最小正数表示 0
func (c *Client) temperature() float32 {
	if c.config.Temperature == 0 {
		return math.SmallestNonzeroFloat32
	}
	return c.config.Temperature
}

// Complete 发送一次 system + user 请求，返回去掉代码块后的文本
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := c.config.RequireKey(); err != nil {
		return "", err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	promptTokens := estimateTokens(systemPrompt) + estimateTokens(userPrompt)
	logger.Debugf("[LLM] 发送请求, 模型 %s, 约 %d tokens", c.config.Model, promptTokens)
	if c.exceedsReplyBudget(promptTokens) {
		logger.Warnf("[LLM] 输入约 %d tokens, 超过回复上限 MaxTokens=%d, 回复可能被截断", promptTokens, c.config.MaxTokens)
	}

	req := openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: c.temperature(),
		MaxTokens:   c.config.MaxTokens,
	}

	resp, err := c.openaiClient.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("调用 LLM API 失败: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	if resp.Choices[0].FinishReason == openai.FinishReasonLength {
		logger.Warnf("[LLM] 回复达到 MaxTokens=%d 上限被截断, 输入约 %d tokens", c.config.MaxTokens, promptTokens)
	}

	content := trimCodeFence(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// StreamChat 以流式方式发送多轮对话，每收到一段增量调用 onDelta，返回完整回复
func (c *Client) StreamChat(ctx context.Context, systemPrompt string, messages []ChatMessage, onDelta func(delta string) error) (string, error) {
	if err := c.config.RequireKey(); err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("对话消息不能为空")
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	reqMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	reqMessages = append(reqMessages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		reqMessages = append(reqMessages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    reqMessages,
		Temperature: c.temperature(),
		MaxTokens:   c.config.MaxTokens,
		Stream:      true,
	}

	stream, err := c.openStream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("调用 LLM API 失败: %w", err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sb.String(), fmt.Errorf("读取 LLM 流式响应失败: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		sb.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return sb.String(), err
			}
		}
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
