package middleware

import (
	"net/http"
	"student_forms/internal/config"
	"student_forms/internal/util"
	"student_forms/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionMiddleware attaches a session id to every request. The id lives in
// a signed cookie; a missing, expired or tampered cookie starts a new
// session.
func SessionMiddleware(cfg *config.Config) gin.HandlerFunc {
	secure := cfg.Server.Mode == "release"
	maxAge := int(cfg.Session.TTL.Seconds())

	return func(c *gin.Context) {
		if token, err := c.Cookie(cfg.Session.CookieName); err == nil && token != "" {
			claims, err := util.ParseSessionToken(token, cfg.Session.Secret)
			if err == nil {
				c.Set(util.ContextSessionID, claims.SessionID)
				c.Next()
				return
			}
			logger.Log.Debug("Discarding session cookie", zap.Error(err))
		}

		sessionID := uuid.NewString()
		token, err := util.GenerateSessionToken(sessionID, cfg.Session.Secret, cfg.Session.TTL)
		if err != nil {
			util.LogInternalError(c, err)
			c.Abort()
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.Session.CookieName, token, maxAge, "/", "", secure, true)
		c.Set(util.ContextSessionID, sessionID)
		c.Next()
	}
}
