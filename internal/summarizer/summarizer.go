package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fachebot/docscribe/internal/config"
	"github.com/fachebot/docscribe/internal/llm"
	"github.com/fachebot/docscribe/internal/logger"
)

// llmCompleter 调用 LLM 生成回复（便于测试注入 mock）
type llmCompleter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Summarizer struct {
	llmClient llmCompleter
}

func NewSummarizer(llmClient *llm.Client) *Summarizer {
	return &Summarizer{
		llmClient: llmClient,
	}
}

// Summarize 将转写文本整理为结构化的交接班总结
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (*StructuredSummary, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, &Error{Kind: KindEmptyInput}
	}

	logger.Infof("[Summarizer] 开始生成总结, 转写文本 %d 个字符", len(transcript))

	raw, err := s.llmClient.Complete(ctx, SystemPrompt, BuildUserPrompt(transcript))
	if err != nil {
		var cfgErr *config.ConfigurationError
		switch {
		case errors.As(err, &cfgErr):
			return nil, err
		case errors.Is(err, llm.ErrEmptyResponse):
			return nil, &Error{Kind: KindEmptyResponse, Err: err}
		default:
			return nil, &Error{Kind: KindServiceUnavailable, Err: fmt.Errorf("LLM 总结失败: %w", err)}
		}
	}

	summary := Parse(raw)
	if !summary.Parsed {
		logger.Warnf("[Summarizer] 无法拆分模型回复, 保留原文")
		logger.Debugf("[Summarizer] 模型回复: %s", raw)
	} else {
		logger.Infof("[Summarizer] 完成总结, 诊断 %d 条, 待办 %d 条, 处置 %d 条",
			len(summary.Diagnoses), len(summary.Pending), len(summary.Conducts))
	}
	return summary, nil
}

// Format 将总结格式化为可复制的纯文本；无法拆分时返回原文
func Format(summary *StructuredSummary) string {
	if summary == nil {
		return ""
	}
	if !summary.Parsed {
		return summary.Raw
	}

	var sb strings.Builder

	if id := summary.Identification(); id != "" {
		sb.WriteString(id)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Diagnósticos:\n")
	for i, item := range summary.Diagnoses {
		sb.WriteString(fmt.Sprintf("%d- %s\n", i+1, item))
	}
	sb.WriteString("\n")

	sb.WriteString("Pendências:\n")
	for i, item := range summary.Pending {
		sb.WriteString(fmt.Sprintf("%d- %s\n", i+1, item))
	}
	sb.WriteString("\n")

	sb.WriteString("Condutas:\n")
	for _, item := range summary.Conducts {
		sb.WriteString(fmt.Sprintf("• %s\n", item))
	}

	return strings.TrimRight(sb.String(), "\n")
}
