package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fachebot/docscribe/internal/pipeline"
	"github.com/fachebot/docscribe/internal/svc"
	"github.com/fachebot/docscribe/internal/transcribe"
	"github.com/fachebot/docscribe/internal/web"

	"github.com/spf13/cobra"
)

var (
	transcriptFile string
	jsonOutput     bool
)

var errProcessFailed = errors.New("processing failed")

var processCmd = &cobra.Command{
	Use:   "process [audio-file]",
	Short: "Transcribe and summarize a single handoff recording",
	Long: `Transcribe and summarize a single handoff recording and print the summary.

With --transcript the transcription step is skipped and the given text file is
summarized directly.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if transcriptFile != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return fmt.Errorf("读取配置文件失败: %w", err)
		}

		svcCtx, err := svc.NewServiceContext(c)
		if err != nil {
			return err
		}
		defer svcCtx.Close()

		var result *pipeline.Result
		if transcriptFile != "" {
			transcript, err := os.ReadFile(transcriptFile)
			if err != nil {
				return fmt.Errorf("读取转写文件失败: %w", err)
			}
			result = svcCtx.Pipeline.RunTranscript(cmd.Context(), string(transcript))
		} else {
			audio, err := readAudioFile(args[0])
			if err != nil {
				return err
			}
			result = svcCtx.Pipeline.Run(cmd.Context(), audio)
		}

		if err := printResult(cmd.OutOrStdout(), result, jsonOutput); err != nil {
			return err
		}
		if result.Err != nil {
			return errProcessFailed
		}
		return nil
	},
}

func init() {
	processCmd.Flags().StringVarP(&transcriptFile, "transcript", "t", "", "summarize an existing transcript text file instead of audio")
	processCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")
}

// readAudioFile 读取本地音频，超出大小上限的文件不会读入内存
func readAudioFile(path string) (transcribe.Audio, error) {
	info, err := os.Stat(path)
	if err != nil {
		return transcribe.Audio{}, fmt.Errorf("读取音频文件失败: %w", err)
	}
	if info.Size() > transcribe.MaxAudioSize {
		return transcribe.Audio{}, &transcribe.Error{
			Kind: transcribe.KindPayloadTooLarge,
			Err:  fmt.Errorf("%s 大小为 %d 字节", path, info.Size()),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return transcribe.Audio{}, fmt.Errorf("读取音频文件失败: %w", err)
	}
	return transcribe.Audio{Data: data, Filename: filepath.Base(path)}, nil
}

type processOutput struct {
	RequestID  string `json:"request_id"`
	Stage      string `json:"stage"`
	Transcript string `json:"transcript,omitempty"`
	Summary    any    `json:"summary,omitempty"`
	Text       string `json:"text,omitempty"`
	Error      string `json:"error,omitempty"`
}

// printResult 输出结果，总结失败时仍然输出转写文本
func printResult(w io.Writer, result *pipeline.Result, asJSON bool) error {
	if asJSON {
		out := processOutput{
			RequestID:  result.RequestID,
			Stage:      string(result.Stage),
			Transcript: result.Transcript,
			Text:       result.Text,
		}
		if result.Summary != nil {
			out.Summary = result.Summary
		}
		if result.Err != nil {
			out.Error = web.UserMessage(result.Err)
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}

	if result.Err != nil {
		fmt.Fprintf(w, "Erro (%s): %s\n", result.Stage, web.UserMessage(result.Err))
		if result.Transcript != "" {
			fmt.Fprintf(w, "\nTranscrição:\n%s\n", result.Transcript)
		}
		return nil
	}

	fmt.Fprintln(w, result.Text)
	return nil
}
