package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StartServer 启动HTTP服务器，监听失败时通过返回的通道报告
func StartServer(r *gin.Engine, port string) (*http.Server, <-chan error) {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	// 在后台启动服务器
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("监听失败: %w", err)
		}
	}()

	slog.Info("服务器启动", "port", port)
	return srv, errCh
}
