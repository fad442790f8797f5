package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fachebot/docscribe/internal/logger"
	"github.com/fachebot/docscribe/internal/svc"
	"github.com/fachebot/docscribe/internal/web"

	"github.com/spf13/cobra"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface and JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return fmt.Errorf("读取配置文件失败: %w", err)
		}
		if cmd.Flags().Changed("host") {
			c.HTTP.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			c.HTTP.Port = servePort
		}

		// 创建服务上下文
		svcCtx, err := svc.NewServiceContext(c)
		if err != nil {
			return err
		}
		defer svcCtx.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		server := web.NewServer(svcCtx)
		if err := server.Start(ctx); err != nil {
			return err
		}
		logger.Infof("服务已停止")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host, overrides HTTP.Host")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port, overrides HTTP.Port")
}
