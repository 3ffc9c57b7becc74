package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"

// RequestID 请求追踪 ID
// 优先沿用客户端带来的 X-Request-ID（扫码端重试时带同一个 ID，
// 便于把一次签到的多次请求串起来），缺失或超长时生成新的。
// 写回响应头，超长上限防日志注入
func RequestID() gin.HandlerFunc {
	const maxLen = 64

	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" || len(rid) > maxLen {
			rid = uuid.New().String()
		}

		c.Set(requestIDKey, rid)
		c.Header("X-Request-ID", rid)

		c.Next()
	}
}
