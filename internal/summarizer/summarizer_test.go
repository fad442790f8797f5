package summarizer

import (
	"context"
	"errors"
	"testing"

	"github.com/fachebot/docscribe/internal/config"
	"github.com/fachebot/docscribe/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCompleter 用于测试的 llmCompleter mock
type mockCompleter struct {
	resp   string
	err    error
	calls  int
	system string
	user   string
}

func (m *mockCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.calls++
	m.system = systemPrompt
	m.user = userPrompt
	if m.err != nil {
		return "", m.err
	}
	return m.resp, nil
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	var sErr *Error
	require.True(t, errors.As(err, &sErr), "期望 *summarizer.Error, 实际 %v", err)
	assert.Equal(t, kind, sErr.Kind)
}

func assertAllSections(t *testing.T, summary *StructuredSummary) {
	t.Helper()
	sections := summary.Sections()
	require.Len(t, sections, len(SectionKeys))
	for i, key := range SectionKeys {
		assert.Equal(t, key, sections[i].Key)
		assert.NotNil(t, sections[i].Items, "分节 %s 不应为 nil", key)
		assert.NotEmpty(t, sections[i].Title)
	}
}

func TestSummarize_EmptyInput(t *testing.T) {
	for _, transcript := range []string{"", "   \n\t"} {
		m := &mockCompleter{resp: "x"}
		s := &Summarizer{llmClient: m}

		result, err := s.Summarize(context.Background(), transcript)
		requireKind(t, err, KindEmptyInput)
		assert.Nil(t, result)
		assert.Equal(t, 0, m.calls, "空输入不应调用 LLM")
	}
}

func TestSummarize_Success(t *testing.T) {
	resp := `{"leito":"3","nome_paciente":"John Doe","diagnosticos":["Sepse de foco pulmonar"],"pendencias":["Aguardar resultado de exames laboratoriais (lab results)"],"condutas":["Manter norepinefrina (0,1 mcg/kg/min)"]}`
	m := &mockCompleter{resp: resp}
	s := &Summarizer{llmClient: m}

	transcript := "Patient John Doe, stable vitals, pending lab results"
	result, err := s.Summarize(context.Background(), transcript)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Parsed)
	assert.Equal(t, "3", result.Bed)
	assert.Equal(t, "John Doe", result.PatientName)
	assert.Equal(t, []string{"Sepse de foco pulmonar"}, result.Diagnoses)
	assert.Equal(t, resp, result.Raw)
	assertAllSections(t, result)

	id, _ := result.Section(SectionIdentification)
	assert.Contains(t, id.Items[0], "John Doe")
	pending, _ := result.Section(SectionPending)
	assert.Contains(t, pending.Items[0], "lab results")

	assert.Equal(t, SystemPrompt, m.system)
	assert.Contains(t, m.user, transcript)
}

func TestSummarize_MissingSectionsAreEmpty(t *testing.T) {
	m := &mockCompleter{resp: `{"nome_paciente":"Maria"}`}
	s := &Summarizer{llmClient: m}

	result, err := s.Summarize(context.Background(), "Maria, sem intercorrências")
	require.NoError(t, err)
	assert.True(t, result.Parsed)
	assert.Equal(t, "Maria", result.PatientName)
	assert.Empty(t, result.Diagnoses)
	assert.NotNil(t, result.Diagnoses)
	assertAllSections(t, result)
}

func TestSummarize_UnparseableKeepsRaw(t *testing.T) {
	resp := "Desculpe, não consegui identificar o paciente nesta gravação."
	m := &mockCompleter{resp: resp}
	s := &Summarizer{llmClient: m}

	result, err := s.Summarize(context.Background(), "ruído")
	require.NoError(t, err)
	assert.False(t, result.Parsed)
	assert.Equal(t, resp, result.Raw)
	assertAllSections(t, result)

	raw, _ := result.Section(SectionRaw)
	assert.Equal(t, []string{resp}, raw.Items)
	assert.Equal(t, resp, Format(result))
}

func TestSummarize_EmptyResponse(t *testing.T) {
	m := &mockCompleter{err: llm.ErrEmptyResponse}
	s := &Summarizer{llmClient: m}

	result, err := s.Summarize(context.Background(), "Paciente estável")
	requireKind(t, err, KindEmptyResponse)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestSummarize_ServiceUnavailable(t *testing.T) {
	m := &mockCompleter{err: errors.New("dial tcp: connection refused")}
	s := &Summarizer{llmClient: m}

	_, err := s.Summarize(context.Background(), "Paciente estável")
	requireKind(t, err, KindServiceUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSummarize_ConfigurationErrorPassesThrough(t *testing.T) {
	m := &mockCompleter{err: &config.ConfigurationError{Key: config.LLMKeyEnv}}
	s := &Summarizer{llmClient: m}

	_, err := s.Summarize(context.Background(), "Paciente estável")
	var cfgErr *config.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	var sErr *Error
	assert.False(t, errors.As(err, &sErr))
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name    string
		summary *StructuredSummary
		want    string
	}{
		{
			name:    "nil 返回空字符串",
			summary: nil,
			want:    "",
		},
		{
			name: "完整总结",
			summary: &StructuredSummary{
				Bed:         "2",
				PatientName: "José",
				Diagnoses:   []string{"Pneumonia", "IRA"},
				Pending:     []string{"Desmame de VM"},
				Conducts:    []string{"Manter ATB", "Solicitar ecocardiograma"},
				Parsed:      true,
			},
			want: "Leito 2 - José\n\nDiagnósticos:\n1- Pneumonia\n2- IRA\n\nPendências:\n1- Desmame de VM\n\nCondutas:\n• Manter ATB\n• Solicitar ecocardiograma",
		},
		{
			name:    "空分节仍输出标题",
			summary: &StructuredSummary{PatientName: "Ana", Parsed: true},
			want:    "Ana\n\nDiagnósticos:\n\nPendências:\n\nCondutas:",
		},
		{
			name:    "未解析时输出原文",
			summary: &StructuredSummary{Raw: "texto livre"},
			want:    "texto livre",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.summary))
		})
	}
}

func TestBuildUserPrompt(t *testing.T) {
	got := BuildUserPrompt("  Leito 1, Maria  ")
	assert.Contains(t, got, "TRANSCRIÇÃO:\nLeito 1, Maria\n")
	assert.NotContains(t, got, "{{transcription}}")
	assert.Contains(t, got, `"nome_paciente"`)
}
