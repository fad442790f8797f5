package summarizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// flexString 接受字符串、数字或 null
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexList 接受字符串数组、单个字符串或 null
type flexList []string

func (f *flexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = []string{s}
	return nil
}

// summaryJSON 用于解析 LLM 返回的 JSON
type summaryJSON struct {
	Bed         flexString `json:"leito"`
	PatientName flexString `json:"nome_paciente"`
	Diagnoses   flexList   `json:"diagnosticos"`
	Pending     flexList   `json:"pendencias"`
	Conducts    flexList   `json:"condutas"`
}

var knownJSONKeys = []string{"leito", "nome_paciente", "diagnosticos", "pendencias", "condutas"}

func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseJSON 依次从每个 { 开始解码第一个 JSON 值，忽略其后的文字
// 至少包含一个已知字段才视为成功
func parseJSON(text string) (*StructuredSummary, error) {
	lastErr := fmt.Errorf("未找到 JSON 对象")
	for offset := 0; ; {
		i := strings.Index(text[offset:], "{")
		if i < 0 {
			return nil, lastErr
		}
		start := offset + i
		offset = start + 1

		summary, err := decodeSummaryJSON(text[start:])
		if err == nil {
			return summary, nil
		}
		lastErr = err
	}
}

func decodeSummaryJSON(text string) (*StructuredSummary, error) {
	var body json.RawMessage
	if err := json.NewDecoder(strings.NewReader(text)).Decode(&body); err != nil {
		return nil, fmt.Errorf("解析 JSON 失败: %w", err)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return nil, fmt.Errorf("解析 JSON 失败: %w", err)
	}
	found := false
	for _, k := range knownJSONKeys {
		if _, ok := keys[k]; ok {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("JSON 中没有总结字段")
	}

	var parsed summaryJSON
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("解析 JSON 失败: %w", err)
	}

	return &StructuredSummary{
		Bed:         strings.TrimSpace(string(parsed.Bed)),
		PatientName: strings.TrimSpace(string(parsed.PatientName)),
		Diagnoses:   cleanItems(parsed.Diagnoses),
		Pending:     cleanItems(parsed.Pending),
		Conducts:    cleanItems(parsed.Conducts),
		Parsed:      true,
	}, nil
}

const headingNames = `identifica[cç][aã]o|identification|paciente|patient|` +
	`diagn[oó]sticos?|diagnos[ie]s|hist[oó]ria(?:\s+cl[ií]nica)?|(?:clinical\s+)?history|` +
	`pend[eê]ncias|pending(?:\s+(?:items|issues))?|` +
	`condutas|conducts|plan(?:o)?`

var (
	headingOnlyRe   = regexp.MustCompile(`(?i)^\s*(?:#{1,6}\s*)?\**\s*(` + headingNames + `)\s*\**\s*:?\s*\**\s*$`)
	headingInlineRe = regexp.MustCompile(`(?i)^\s*(?:#{1,6}\s*)?\**\s*(` + headingNames + `)\s*\**\s*:\s*\**\s*(.+)$`)
	bedLineRe       = regexp.MustCompile(`(?i)^\s*\**\s*(?:leito|bed)\s*:?\s*([^\s\-–—:*]+)\s*\**\s*(?:[-–—:]\s*(.+))?$`)
	itemPrefixRe    = regexp.MustCompile(`^\s*(?:\d+\s*[-.)]\s*|[-•*]\s+)`)
)

func sectionForHeading(name string) SectionKey {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "identifica"), strings.HasPrefix(name, "pacien"), strings.HasPrefix(name, "patient"):
		return SectionIdentification
	case strings.HasPrefix(name, "diagn"), strings.HasPrefix(name, "hist"), strings.Contains(name, "history"):
		return SectionDiagnoses
	case strings.HasPrefix(name, "pend"):
		return SectionPending
	default:
		return SectionConducts
	}
}

func stripItem(line string) string {
	line = itemPrefixRe.ReplaceAllString(line, "")
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*"))
}

// parseHeadings 解析按标题分段的文本（与 Format 的输出格式一致）
// 至少识别出一个标题才视为成功；有无法归入任何分节的行时 Parsed 为 false
func parseHeadings(text string) (*StructuredSummary, error) {
	summary := &StructuredSummary{}
	var current SectionKey
	headings := 0
	unplaced := 0

	add := func(key SectionKey, item string) {
		if item == "" {
			return
		}
		switch key {
		case SectionIdentification:
			if !setIdentification(summary, item) {
				unplaced++
			}
		case SectionDiagnoses:
			summary.Diagnoses = append(summary.Diagnoses, item)
		case SectionPending:
			summary.Pending = append(summary.Pending, item)
		case SectionConducts:
			summary.Conducts = append(summary.Conducts, item)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := headingOnlyRe.FindStringSubmatch(trimmed); m != nil {
			current = sectionForHeading(m[1])
			headings++
			continue
		}
		if m := headingInlineRe.FindStringSubmatch(trimmed); m != nil {
			current = sectionForHeading(m[1])
			headings++
			add(current, stripItem(m[2]))
			continue
		}
		if current == "" || current == SectionIdentification {
			if m := bedLineRe.FindStringSubmatch(trimmed); m != nil {
				summary.Bed = m[1]
				if name := strings.TrimSpace(m[2]); name != "" {
					summary.PatientName = name
				}
				headings++
				continue
			}
		}
		if current == "" {
			unplaced++
			continue
		}
		add(current, stripItem(trimmed))
	}

	if headings == 0 {
		return nil, fmt.Errorf("未识别到分节标题")
	}
	summary.Parsed = unplaced == 0
	return summary, nil
}

// setIdentification 解析 "Leito 3 - Nome"，否则整体作为姓名
// 已有姓名时返回 false，调用方需保留原文
func setIdentification(summary *StructuredSummary, item string) bool {
	if m := bedLineRe.FindStringSubmatch(item); m != nil {
		summary.Bed = m[1]
		if name := strings.TrimSpace(m[2]); name != "" {
			summary.PatientName = name
		}
		return true
	}
	if summary.PatientName == "" {
		summary.PatientName = item
		return true
	}
	return summary.PatientName == item
}

// Parse 将模型回复拆分为结构化总结：先尝试 JSON，再尝试标题分段，都失败时只保留原文
// 无论哪种情况 Raw 都保存完整的原始回复，Parsed 为 false 时 Format 输出 Raw
func Parse(raw string) *StructuredSummary {
	text := strings.TrimSpace(raw)

	summary, err := parseJSON(text)
	if err != nil {
		summary, err = parseHeadings(text)
	}
	if err != nil {
		summary = &StructuredSummary{}
	}

	summary.Raw = text
	summary.normalize()
	return summary
}

// ExtractTagged 从对话回复中提取 <sumario_json> 标签内的总结
// 没有标签时返回 nil, nil
func ExtractTagged(reply string) (*StructuredSummary, error) {
	start := strings.Index(reply, TagOpen)
	if start < 0 {
		return nil, nil
	}
	rest := reply[start+len(TagOpen):]
	end := strings.Index(rest, TagClose)
	if end < 0 {
		return nil, nil
	}

	body := strings.TrimSpace(rest[:end])
	summary, err := parseJSON(body)
	if err != nil {
		return nil, fmt.Errorf("无法提取总结: %w", err)
	}
	summary.Raw = body
	summary.normalize()
	return summary, nil
}
