package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"blog-sync/internal/auth"
)

const (
	signatureHeader = "X-Hub-Signature-256"
	rawBodyKey      = "rawBody"

	maxWebhookBody = 25 << 20
)

// RawBody returns the request body captured by RequireSignature.
func RawBody(c *gin.Context) ([]byte, bool) {
	v, ok := c.Get(rawBodyKey)
	if !ok {
		return nil, false
	}
	body, ok := v.([]byte)
	return body, ok
}

// RequireSignature checks X-Hub-Signature-256 against secret. An empty secret
// disables the check but the body is still captured for handlers.
func RequireSignature(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if secret != "" {
			if err := auth.VerifySignatureDetailed(secret, body, c.GetHeader(signatureHeader)); err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook signature"})
				c.Abort()
				return
			}
		}

		c.Set(rawBodyKey, body)
		c.Next()
	}
}
