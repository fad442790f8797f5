package transcribe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name  string
		audio Audio
		want  string
	}{
		{"声明 audio/mpeg", Audio{ContentType: "audio/mpeg", Filename: "a.bin"}, "mp3"},
		{"声明带参数", Audio{ContentType: "audio/ogg; codecs=opus"}, "ogg"},
		{"声明 x-m4a", Audio{ContentType: "audio/x-m4a"}, "m4a"},
		{"octet-stream 回退到扩展名", Audio{ContentType: "application/octet-stream", Filename: "Gravação.M4A"}, "m4a"},
		{"无声明按扩展名", Audio{Filename: "plantao.opus"}, "opus"},
		{"按内容识别 mp3", Audio{Data: mp3Header}, "mp3"},
		{"按内容识别 flac", Audio{Data: []byte("fLaC\x00\x00\x00\x22" + "streaminfo")}, "flac"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.audio)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectFormat_Unsupported(t *testing.T) {
	_, err := DetectFormat(Audio{ContentType: "image/png", Filename: "foto.png", Data: []byte("\x89PNG\r\n\x1a\n")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mp3")
}

func TestUploadFilename(t *testing.T) {
	assert.Equal(t, "audio.mp3", uploadFilename("", "mp3"))
	assert.Equal(t, "plantao.wav", uploadFilename("plantao.wav", "wav"))
	assert.Equal(t, "plantao.m4a", uploadFilename("plantao.bin", "m4a"))
	assert.Equal(t, "leito3.ogg", uploadFilename("/tmp/uploads/leito3", "ogg"))
}

func TestValidate(t *testing.T) {
	format, err := Validate(Audio{Data: mp3Header, Filename: "a.mp3"})
	require.NoError(t, err)
	assert.Equal(t, "mp3", format)

	_, err = Validate(Audio{})
	requireKind(t, err, KindEmptyResult)
}
