package cmd

import (
	"os"

	"github.com/fachebot/docscribe/internal/config"
	"github.com/fachebot/docscribe/internal/logger"

	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "docscribe",
	Short: "Transcribe ICU handoff recordings and organise them into a structured patient summary",
	Long: `docscribe records or receives the audio of a clinical shift handoff,
transcribes it with a Whisper compatible service and asks a language model to
organise the transcript into identification, diagnoses, pending issues and conducts.

API keys are read from .env, etc/config.yaml or the environment:
  GROQ_API_KEY       transcription
  ANTHROPIC_API_KEY  summarization`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.SetVerbose(verbose)
		if err := config.LoadEnvFiles(); err != nil {
			logger.Warnf("加载 .env 文件失败: %v", err)
		}
		return nil
	},
}

// Execute 由 main.main 调用
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "f", "etc/config.yaml", "the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "verbose output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig 读取配置，缺少 API Key 时只打印警告
func loadConfig() (*config.Config, error) {
	c, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	for _, key := range c.MissingKeys() {
		logger.Warnf("%s 未配置, 相关功能将返回配置错误", key)
	}
	return c, nil
}
