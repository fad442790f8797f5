// Package fakeapi 提供兼容 OpenAI 接口的本地假服务，供测试使用
package fakeapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// Server 记录收到的请求并返回预设的转写文本和模型回复
type Server struct {
	*httptest.Server

	mu                 sync.Mutex
	Transcript         string
	Completion         string
	TranscriptionCalls int
	CompletionCalls    int
	LastAudio          []byte
	LastFilename       string
	LastPrompt         string
	FailTranscription  bool
	FailCompletion     bool
}

func New() *Server {
	s := &Server{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/audio/transcriptions", s.handleTranscription)
	mux.HandleFunc("/v1/chat/completions", s.handleCompletion)
	s.Server = httptest.NewServer(mux)
	return s
}

// BaseURL 作为 go-openai 的 BaseURL 使用
func (s *Server) BaseURL() string {
	return s.URL + "/v1"
}

func (s *Server) Calls() (transcriptions, completions int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.TranscriptionCalls, s.CompletionCalls
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "type": "server_error"},
	})
}

func (s *Server) handleTranscription(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TranscriptionCalls++

	if s.FailTranscription {
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()
	s.LastAudio, _ = io.ReadAll(file)
	s.LastFilename = header.Filename

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"text": s.Transcript})
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CompletionCalls++

	if s.FailCompletion {
		writeError(w, http.StatusUnauthorized, "invalid api key")
		return
	}

	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Stream bool `json:"stream"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if n := len(req.Messages); n > 0 {
		s.LastPrompt = req.Messages[n-1].Content
	}

	if req.Stream {
		s.stream(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "test",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": s.Completion},
			"finish_reason": "stop",
		}},
	})
}

// stream 以 SSE 格式按单词拆分回复
func (s *Server) stream(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)

	for _, part := range splitKeepSpaces(s.Completion) {
		data, _ := json.Marshal(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion.chunk",
			"model":  "test",
			"choices": []map[string]any{{
				"index": 0,
				"delta": map[string]any{"content": part},
			}},
		})
		_, _ = w.Write([]byte("data: " + string(data) + "\n\n"))
		if flusher != nil {
			flusher.Flush()
		}
	}
	_, _ = w.Write([]byte("data: [DONE]\n\n"))
}

func splitKeepSpaces(text string) []string {
	var parts []string
	start := 0
	for i, r := range text {
		if r == ' ' && i > start {
			parts = append(parts, text[start:i])
			start = i
		}
	}
	if start < len(text) {
		parts = append(parts, text[start:])
	}
	return parts
}
