package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/fachebot/docscribe/internal/logger"
	"github.com/fachebot/docscribe/internal/svc"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const shutdownTimeout = 10 * time.Second

// NewRouter 注册全部路由
func NewRouter(svcCtx *svc.ServiceContext) http.Handler {
	h := NewHandler(svcCtx)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  logger.AccessLogger{},
		NoColor: true,
	}))
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: svcCtx.Config.HTTP.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	router.Get("/", h.Index)
	router.Post("/summaries", h.UploadSummary)
	router.Get("/healthz", h.Healthz)
	router.Method(http.MethodGet, "/metrics", svcCtx.Metrics.Handler())

	router.Route("/api/v1", func(apiRouter chi.Router) {
		apiRouter.Post("/transcriptions", h.APITranscription)
		apiRouter.Post("/summaries", h.APISummary)
		apiRouter.Post("/chat", h.Chat)
	})
	return router
}

type Server struct {
	svcCtx *svc.ServiceContext
	srv    *http.Server
}

func NewServer(svcCtx *svc.ServiceContext) *Server {
	c := svcCtx.Config

	// 写超时需覆盖转写和总结两次外部调用
	writeTimeout := time.Duration(c.Transcription.TimeoutSeconds+c.LLM.TimeoutSeconds)*time.Second + 30*time.Second

	srv := &http.Server{
		Addr:              net.JoinHostPort(c.HTTP.Host, fmt.Sprint(c.HTTP.Port)),
		Handler:           NewRouter(svcCtx),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{svcCtx: svcCtx, srv: srv}
}

func (s *Server) Addr() string {
	return s.srv.Addr
}

// Start 启动 HTTP 服务，ctx 取消后优雅关闭
func (s *Server) Start(ctx context.Context) error {
	serverErrors := make(chan error, 1)
	go func() {
		logger.Infof("[Web] HTTP 服务已启动, 监听 %s", s.srv.Addr)
		serverErrors <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP 服务异常退出: %w", err)
	case <-ctx.Done():
		logger.Infof("[Web] 正在关闭 HTTP 服务...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		_ = s.srv.Close()
		return fmt.Errorf("HTTP 服务关闭失败: %w", err)
	}
	logger.Infof("[Web] HTTP 服务已停止")
	return nil
}
