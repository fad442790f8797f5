package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/fachebot/docscribe/internal/config"
	"github.com/fachebot/docscribe/internal/llm"
	"github.com/fachebot/docscribe/internal/logger"
	"github.com/fachebot/docscribe/internal/metrics"
	"github.com/fachebot/docscribe/internal/pipeline"
	"github.com/fachebot/docscribe/internal/summarizer"
	"github.com/fachebot/docscribe/internal/svc"
	"github.com/fachebot/docscribe/internal/transcribe"
)

const (
	audioField = "audio"

	// 表单中除音频外的字段预留 1MB
	maxUploadSize = transcribe.MaxAudioSize + 1<<20

	maxChatBodySize = 1 << 20
)

// audioTranscriber 只转写不总结（便于测试注入 mock）
type audioTranscriber interface {
	Transcribe(ctx context.Context, audio transcribe.Audio) (string, error)
}

// summaryRunner 处理上传的音频（便于测试注入 mock）
type summaryRunner interface {
	Run(ctx context.Context, audio transcribe.Audio) *pipeline.Result
}

// chatStreamer 对话模式的流式回复（便于测试注入 mock）
type chatStreamer interface {
	StreamChat(ctx context.Context, systemPrompt string, messages []llm.ChatMessage, onDelta func(delta string) error) (string, error)
}

type Handler struct {
	config      *config.Config
	transcriber audioTranscriber
	pipeline    summaryRunner
	chat        chatStreamer
	metrics     *metrics.Metrics
}

func NewHandler(svcCtx *svc.ServiceContext) *Handler {
	return &Handler{
		config:      svcCtx.Config,
		transcriber: svcCtx.Transcriber,
		pipeline:    svcCtx.Pipeline,
		chat:        svcCtx.LLMClient,
		metrics:     svcCtx.Metrics,
	}
}

type (
	summaryResponse struct {
		RequestID  string                        `json:"request_id,omitempty"`
		Transcript string                        `json:"transcript,omitempty"`
		Summary    *summarizer.StructuredSummary `json:"summary,omitempty"`
		Sections   []summarizer.Section          `json:"sections,omitempty"`
		Text       string                        `json:"text,omitempty"`
		Error      *errorBody                    `json:"error,omitempty"`
	}

	transcriptionResponse struct {
		RequestID  string     `json:"request_id"`
		Transcript string     `json:"transcript,omitempty"`
		Error      *errorBody `json:"error,omitempty"`
	}

	chatRequest struct {
		Messages []llm.ChatMessage `json:"messages"`
	}

	chatChunk struct {
		Content string                        `json:"content"`
		IsEnd   bool                          `json:"is_end"`
		Summary *summarizer.StructuredSummary `json:"summary,omitempty"`
		Error   *errorBody                    `json:"error,omitempty"`
	}
)

// readAudio 从 multipart 表单读取音频，超出上传上限时返回 PayloadTooLarge
func readAudio(w http.ResponseWriter, r *http.Request) (transcribe.Audio, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	file, header, err := r.FormFile(audioField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return transcribe.Audio{}, &transcribe.Error{Kind: transcribe.KindPayloadTooLarge, Err: err}
		}
		return transcribe.Audio{}, invalidRequest("Envie um arquivo de áudio no campo '%s'.", audioField)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return transcribe.Audio{}, invalidRequest("Não foi possível ler o arquivo de áudio.")
	}

	return transcribe.Audio{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("[Web] 写入响应失败: %v", err)
	}
}

func newSummaryResponse(result *pipeline.Result) (int, summaryResponse) {
	resp := summaryResponse{
		RequestID:  result.RequestID,
		Transcript: result.Transcript,
		Summary:    result.Summary,
		Text:       result.Text,
	}
	if result.Summary != nil {
		resp.Sections = result.Summary.Sections()
	}
	if result.Err != nil {
		resp.Error = newErrorBody(result.Err, string(result.Stage))
		return StatusCode(result.Err), resp
	}
	return http.StatusOK, resp
}

// Index 上传页面
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, newPageData(nil, nil))
}

// UploadSummary 表单上传音频，返回渲染后的结果页面
func (h *Handler) UploadSummary(w http.ResponseWriter, r *http.Request) {
	audio, err := readAudio(w, r)
	if err != nil {
		logger.Warnf("[Web] 读取上传音频失败: %v", err)
		h.render(w, StatusCode(err), newPageData(nil, err))
		return
	}

	result := h.pipeline.Run(r.Context(), audio)
	status := http.StatusOK
	if result.Err != nil {
		status = StatusCode(result.Err)
	}
	h.render(w, status, newPageData(result, result.Err))
}

// APISummary 上传音频，返回 JSON 格式的转写和总结
func (h *Handler) APISummary(w http.ResponseWriter, r *http.Request) {
	audio, err := readAudio(w, r)
	if err != nil {
		logger.Warnf("[Web] 读取上传音频失败: %v", err)
		writeJSON(w, StatusCode(err), summaryResponse{Error: newErrorBody(err, string(pipeline.StageTranscription))})
		return
	}

	status, resp := newSummaryResponse(h.pipeline.Run(r.Context(), audio))
	writeJSON(w, status, resp)
}

// APITranscription 只转写音频，供对话模式把转写文本作为用户消息
func (h *Handler) APITranscription(w http.ResponseWriter, r *http.Request) {
	requestID := pipeline.RequestID(r.Context())
	log := logger.WithRequest(requestID)

	audio, err := readAudio(w, r)
	if err == nil {
		if h.metrics != nil {
			h.metrics.ObserveAudioSize(audio.Size())
		}
		start := time.Now()
		var transcript string
		transcript, err = h.transcriber.Transcribe(r.Context(), audio)
		if h.metrics != nil {
			h.metrics.ObserveStage(string(pipeline.StageTranscription), time.Since(start))
		}
		if err == nil {
			log.Infof("[Web] 转写完成, %d 个字符", len(transcript))
			writeJSON(w, http.StatusOK, transcriptionResponse{RequestID: requestID, Transcript: transcript})
			return
		}
	}

	log.Warnf("[Web] 转写失败: %v", err)
	writeJSON(w, StatusCode(err), transcriptionResponse{
		RequestID: requestID,
		Error:     newErrorBody(err, string(pipeline.StageTranscription)),
	})
}

// chatError 将 LLM 调用错误归类为总结服务错误，配置错误保持不变
func chatError(err error) error {
	var cfgErr *config.ConfigurationError
	switch {
	case errors.As(err, &cfgErr), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, llm.ErrEmptyResponse):
		return &summarizer.Error{Kind: summarizer.KindEmptyResponse, Err: err}
	default:
		return &summarizer.Error{Kind: summarizer.KindServiceUnavailable, Err: err}
	}
}

// Chat 对话模式，以分块 JSON 行流式返回回复
// 最后一块 is_end 为 true，回复中包含 <sumario_json> 时附带解析后的总结
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodySize)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, chatChunk{IsEnd: true, Error: newErrorBody(invalidRequest("Corpo da requisição inválido."), "")})
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, chatChunk{IsEnd: true, Error: newErrorBody(invalidRequest("Envie ao menos uma mensagem."), "")})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// 收到第一段回复后才写入响应头，之前的错误仍可返回对应状态码
	started := false
	begin := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Transfer-Encoding", "chunked")
		w.WriteHeader(http.StatusOK)
	}
	encoder := json.NewEncoder(w)

	start := time.Now()
	reply, err := h.chat.StreamChat(r.Context(), summarizer.ChatSystemPrompt, req.Messages, func(delta string) error {
		begin()
		if err := encoder.Encode(chatChunk{Content: delta}); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if h.metrics != nil {
		h.metrics.ObserveStage("chat", time.Since(start))
	}

	if err != nil {
		err = chatError(err)
		logger.Warnf("[Web] 对话失败: %v", err)
		if !started {
			writeJSON(w, StatusCode(err), chatChunk{IsEnd: true, Error: newErrorBody(err, "")})
			return
		}
		_ = encoder.Encode(chatChunk{IsEnd: true, Error: newErrorBody(err, "")})
		flusher.Flush()
		return
	}

	final := chatChunk{IsEnd: true}
	summary, err := summarizer.ExtractTagged(reply)
	if err != nil {
		logger.Warnf("[Web] 解析对话中的总结失败: %v", err)
	} else {
		final.Summary = summary
	}

	begin()
	_ = encoder.Encode(final)
	flusher.Flush()
}

// Healthz 存活检查，同时列出未配置的 API Key
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	missing := h.config.MissingKeys()
	if missing == nil {
		missing = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"missing_keys": missing,
	})
}
