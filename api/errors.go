package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"studygroup/store"
)

// respondError 将领域错误映射为HTTP状态码
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotMember):
		ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrGroupFull):
		ctx.JSON(http.StatusConflict, gin.H{"status": "full", "error": err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
	}
}
