package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fachebot/docscribe/internal/config"
	"github.com/fachebot/docscribe/internal/summarizer"
	"github.com/fachebot/docscribe/internal/transcribe"
)

// errInvalidRequest 请求本身不合法（缺少文件、JSON 格式错误等）
type errInvalidRequest struct {
	message string
}

func (e *errInvalidRequest) Error() string { return e.message }

func invalidRequest(format string, args ...any) error {
	return &errInvalidRequest{message: fmt.Sprintf(format, args...)}
}

// ErrorKind 返回错误类别，用于 API 响应
func ErrorKind(err error) string {
	var cfgErr *config.ConfigurationError
	var tErr *transcribe.Error
	var sErr *summarizer.Error
	var reqErr *errInvalidRequest
	switch {
	case errors.As(err, &reqErr):
		return "InvalidRequest"
	case errors.As(err, &cfgErr):
		return "ConfigurationError"
	case errors.As(err, &tErr):
		return string(tErr.Kind)
	case errors.As(err, &sErr):
		return string(sErr.Kind)
	case errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	default:
		return "Internal"
	}
}

// StatusCode 错误对应的 HTTP 状态码
func StatusCode(err error) int {
	var cfgErr *config.ConfigurationError
	var tErr *transcribe.Error
	var sErr *summarizer.Error
	var reqErr *errInvalidRequest
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError
	case errors.As(err, &tErr):
		switch tErr.Kind {
		case transcribe.KindPayloadTooLarge:
			return http.StatusRequestEntityTooLarge
		case transcribe.KindUnsupportedFormat:
			return http.StatusUnsupportedMediaType
		case transcribe.KindEmptyResult:
			return http.StatusUnprocessableEntity
		default:
			return http.StatusBadGateway
		}
	case errors.As(err, &sErr):
		if sErr.Kind == summarizer.KindEmptyInput {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage 将错误转换为展示给用户的提示
func UserMessage(err error) string {
	var reqErr *errInvalidRequest
	if errors.As(err, &reqErr) {
		return reqErr.message
	}

	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return fmt.Sprintf("A chave de API %s não está configurada. %s", cfgErr.Key, cfgErr.Guidance())
	}

	var tErr *transcribe.Error
	if errors.As(err, &tErr) {
		switch tErr.Kind {
		case transcribe.KindPayloadTooLarge:
			return fmt.Sprintf("O arquivo de áudio excede o limite de %d MB.", transcribe.MaxAudioSize/(1024*1024))
		case transcribe.KindEmptyResult:
			return "Nenhuma fala foi reconhecida no áudio. Grave novamente, mais perto do microfone."
		case transcribe.KindUnsupportedFormat:
			return "Formato de áudio não suportado. Use mp3, wav, m4a, opus, ogg, webm ou flac."
		default:
			return "Não foi possível transcrever o áudio: o serviço de transcrição está indisponível. Tente novamente."
		}
	}

	var sErr *summarizer.Error
	if errors.As(err, &sErr) {
		switch sErr.Kind {
		case summarizer.KindEmptyInput:
			return "A transcrição está vazia, não há conteúdo para resumir."
		case summarizer.KindEmptyResponse:
			return "O modelo não retornou nenhum conteúdo. Tente novamente."
		default:
			return "Não foi possível gerar o sumário: o serviço de linguagem está indisponível. Tente novamente."
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "A solicitação excedeu o tempo limite. Tente novamente."
	}
	return "Erro inesperado ao processar a solicitação."
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
}

func newErrorBody(err error, stage string) *errorBody {
	return &errorBody{Kind: ErrorKind(err), Message: UserMessage(err), Stage: stage}
}
