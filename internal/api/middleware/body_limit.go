package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"greenpick/backend/pkg/response"
)

// BodyLimit 请求体大小上限
// 签到/结算接口的请求体都很小，超限的基本是误连的客户端，
// 直接在入口截断，避免打到业务层
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.IsAborted() {
			return
		}
		for _, ginErr := range c.Errors {
			var mbe *http.MaxBytesError
			if errors.As(ginErr.Err, &mbe) {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				return
			}
		}
	}
}
