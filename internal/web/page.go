package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/fachebot/docscribe/internal/logger"
	"github.com/fachebot/docscribe/internal/pipeline"
	"github.com/fachebot/docscribe/internal/summarizer"
	"github.com/fachebot/docscribe/internal/transcribe"

	"github.com/samber/lo"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	MaxSizeMB  int
	Accept     string
	RequestID  string
	Transcript string
	Text       string
	Sections   []summarizer.Section
	Parsed     bool
	Error      string
	ErrorStage string
}

func newPageData(result *pipeline.Result, err error) pageData {
	accept := lo.Map(transcribe.SupportedFormats, func(f string, _ int) string { return "." + f })

	data := pageData{
		MaxSizeMB: transcribe.MaxAudioSize / (1024 * 1024),
		Accept:    "audio/*," + strings.Join(accept, ","),
	}
	if result != nil {
		data.RequestID = result.RequestID
		data.Transcript = result.Transcript
		data.Text = result.Text
		if result.Summary != nil {
			data.Parsed = result.Summary.Parsed
			data.Sections = lo.Filter(result.Summary.Sections(), func(s summarizer.Section, _ int) bool {
				return s.Key != summarizer.SectionRaw
			})
		}
		if result.Err != nil {
			data.ErrorStage = string(result.Stage)
		}
	}
	if err != nil {
		data.Error = UserMessage(err)
	}
	return data
}

// render 先渲染到缓冲区，模板出错时不会输出半个页面
func (h *Handler) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		logger.Errorf("[Web] 渲染页面失败: %v", err)
		http.Error(w, "Erro interno", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
