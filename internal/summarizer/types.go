package summarizer

import "fmt"

type SectionKey string

const (
	SectionIdentification SectionKey = "identification"
	SectionDiagnoses      SectionKey = "diagnoses"
	SectionPending        SectionKey = "pending"
	SectionConducts       SectionKey = "conducts"
	SectionRaw            SectionKey = "raw"
)

// SectionKeys 结构化总结中始终存在的分节，按展示顺序
var SectionKeys = []SectionKey{SectionIdentification, SectionDiagnoses, SectionPending, SectionConducts, SectionRaw}

var sectionTitles = map[SectionKey]string{
	SectionIdentification: "Identificação",
	SectionDiagnoses:      "Diagnósticos",
	SectionPending:        "Pendências",
	SectionConducts:       "Condutas",
	SectionRaw:            "Resposta original",
}

// Section 单个分节
type Section struct {
	Key   SectionKey `json:"key"`
	Title string     `json:"title"`
	Items []string   `json:"items"`
}

// StructuredSummary 交接班患者总结
// Parsed 为 false 时模型回复无法拆分，完整内容保存在 Raw 中
type StructuredSummary struct {
	Bed         string   `json:"leito"`
	PatientName string   `json:"nome_paciente"`
	Diagnoses   []string `json:"diagnosticos"`
	Pending     []string `json:"pendencias"`
	Conducts    []string `json:"condutas"`
	Raw         string   `json:"raw"`
	Parsed      bool     `json:"parsed"`
}

// normalize 保证列表字段不为 nil，序列化后为 [] 而不是 null
func (s *StructuredSummary) normalize() {
	if s.Diagnoses == nil {
		s.Diagnoses = []string{}
	}
	if s.Pending == nil {
		s.Pending = []string{}
	}
	if s.Conducts == nil {
		s.Conducts = []string{}
	}
}

// Identification 形如 "Leito 3 - John Doe"，缺失的部分省略
func (s *StructuredSummary) Identification() string {
	switch {
	case s.Bed != "" && s.PatientName != "":
		return fmt.Sprintf("Leito %s - %s", s.Bed, s.PatientName)
	case s.Bed != "":
		return fmt.Sprintf("Leito %s", s.Bed)
	default:
		return s.PatientName
	}
}

// Section 返回指定分节，未知的 key 返回 false
func (s *StructuredSummary) Section(key SectionKey) (Section, bool) {
	var items []string
	switch key {
	case SectionIdentification:
		if id := s.Identification(); id != "" {
			items = []string{id}
		}
	case SectionDiagnoses:
		items = s.Diagnoses
	case SectionPending:
		items = s.Pending
	case SectionConducts:
		items = s.Conducts
	case SectionRaw:
		if s.Raw != "" {
			items = []string{s.Raw}
		}
	default:
		return Section{}, false
	}

	if items == nil {
		items = []string{}
	}
	return Section{Key: key, Title: sectionTitles[key], Items: items}, true
}

// Sections 按 SectionKeys 顺序返回全部分节，缺失的分节为空列表
func (s *StructuredSummary) Sections() []Section {
	sections := make([]Section, 0, len(SectionKeys))
	for _, key := range SectionKeys {
		section, _ := s.Section(key)
		sections = append(sections, section)
	}
	return sections
}

type Kind string

const (
	KindServiceUnavailable Kind = "ServiceUnavailable"
	KindEmptyInput         Kind = "EmptyInput"
	KindEmptyResponse      Kind = "EmptyResponse"
)

// Error 总结失败
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindEmptyInput:
		return "转写文本为空，无法生成总结"
	case KindEmptyResponse:
		return fmt.Sprintf("模型返回空结果: %v", e.Err)
	default:
		return fmt.Sprintf("LLM 服务不可用: %v", e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }
