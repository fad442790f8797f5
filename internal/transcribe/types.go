package transcribe

import "fmt"

const (
	// MaxAudioSize 转写服务单个文件的大小上限
	MaxAudioSize = 25 * 1024 * 1024 // 25MB
)

// Audio 上传的音频
type Audio struct {
	Data        []byte
	ContentType string
	Filename    string
}

func (a Audio) Size() int { return len(a.Data) }

type Kind string

const (
	KindServiceUnavailable Kind = "ServiceUnavailable"
	KindPayloadTooLarge    Kind = "PayloadTooLarge"
	KindEmptyResult        Kind = "EmptyResult"
	KindUnsupportedFormat  Kind = "UnsupportedFormat"
)

// Error 转写失败
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindPayloadTooLarge:
		return fmt.Sprintf("音频超过大小上限 %d 字节: %v", MaxAudioSize, e.Err)
	case KindEmptyResult:
		if e.Err != nil {
			return fmt.Sprintf("转写结果为空: %v", e.Err)
		}
		return "转写结果为空"
	case KindUnsupportedFormat:
		return fmt.Sprintf("不支持的音频格式: %v", e.Err)
	default:
		return fmt.Sprintf("转写服务不可用: %v", e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }
