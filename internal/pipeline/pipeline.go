package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/fachebot/docscribe/internal/config"
	"github.com/fachebot/docscribe/internal/logger"
	"github.com/fachebot/docscribe/internal/metrics"
	"github.com/fachebot/docscribe/internal/summarizer"
	"github.com/fachebot/docscribe/internal/transcribe"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// audioTranscriber 语音转写（便于测试注入 mock）
type audioTranscriber interface {
	Transcribe(ctx context.Context, audio transcribe.Audio) (string, error)
}

// transcriptSummarizer 生成结构化总结（便于测试注入 mock）
type transcriptSummarizer interface {
	Summarize(ctx context.Context, transcript string) (*summarizer.StructuredSummary, error)
}

type Stage string

const (
	StageTranscription Stage = "transcription"
	StageSummarization Stage = "summarization"
	StageDone          Stage = "done"
)

// Result 单次请求的结果，失败时 Stage 为出错的阶段
// 总结失败时 Transcript 仍然保留
type Result struct {
	RequestID  string
	Transcript string
	Summary    *summarizer.StructuredSummary
	Text       string
	Stage      Stage
	Err        error
}

func (r *Result) OK() bool { return r.Err == nil }

type Pipeline struct {
	transcriber audioTranscriber
	summarizer  transcriptSummarizer
	metrics     *metrics.Metrics
}

func New(t *transcribe.Client, s *summarizer.Summarizer, m *metrics.Metrics) *Pipeline {
	return &Pipeline{transcriber: t, summarizer: s, metrics: m}
}

// Outcome 按错误类型给出指标标签
func Outcome(err error) string {
	var cfgErr *config.ConfigurationError
	var tErr *transcribe.Error
	var sErr *summarizer.Error
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &cfgErr):
		return "configuration_error"
	case errors.As(err, &tErr):
		return "transcription_error"
	case errors.As(err, &sErr):
		return "summarization_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// RequestID 优先使用 HTTP 中间件写入 context 的请求 ID，没有时生成新的
func RequestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// Run 依次执行转写和总结
func (p *Pipeline) Run(ctx context.Context, audio transcribe.Audio) *Result {
	result := &Result{RequestID: RequestID(ctx), Stage: StageTranscription}
	log := logger.WithRequest(result.RequestID)
	log.Infof("[Pipeline] 收到音频 %s, %d 字节", audio.Filename, audio.Size())
	if p.metrics != nil {
		p.metrics.ObserveAudioSize(audio.Size())
	}

	start := time.Now()
	transcript, err := p.transcriber.Transcribe(ctx, audio)
	p.observe(StageTranscription, start)
	if err != nil {
		log.Warnf("[Pipeline] 转写失败: %v", err)
		return p.finish(result, err)
	}
	result.Transcript = transcript

	return p.summarize(ctx, result, log)
}

// RunTranscript 跳过转写，直接总结已有的转写文本
func (p *Pipeline) RunTranscript(ctx context.Context, transcript string) *Result {
	result := &Result{RequestID: RequestID(ctx), Transcript: transcript}
	log := logger.WithRequest(result.RequestID)
	log.Infof("[Pipeline] 收到转写文本, %d 个字符", len(transcript))
	return p.summarize(ctx, result, log)
}

func (p *Pipeline) summarize(ctx context.Context, result *Result, log *logger.Entry) *Result {
	result.Stage = StageSummarization

	start := time.Now()
	summary, err := p.summarizer.Summarize(ctx, result.Transcript)
	p.observe(StageSummarization, start)
	if err != nil {
		log.Warnf("[Pipeline] 总结失败: %v", err)
		return p.finish(result, err)
	}

	result.Summary = summary
	result.Text = summarizer.Format(summary)
	result.Stage = StageDone
	log.Infof("[Pipeline] 处理完成")
	return p.finish(result, nil)
}

func (p *Pipeline) observe(stage Stage, start time.Time) {
	if p.metrics != nil {
		p.metrics.ObserveStage(string(stage), time.Since(start))
	}
}

func (p *Pipeline) finish(result *Result, err error) *Result {
	result.Err = err
	if p.metrics != nil {
		p.metrics.RecordOutcome(Outcome(err))
	}
	return result
}
