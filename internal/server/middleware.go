package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	teamdomain "github.com/workfolio/workfolio/internal/team/domain"
)

const teamContextKey = "team"

// TeamAuthRequired resolves the caller's team from the bearer token. The
// team a request acts on is always the authenticated one; clients never
// name a team id directly.
func (s *Server) TeamAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		team, err := s.teamSvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(teamContextKey, team)
		c.Next()
	}
}

func teamFromContext(c *gin.Context) (teamdomain.Team, bool) {
	value, ok := c.Get(teamContextKey)
	if !ok {
		return teamdomain.Team{}, false
	}
	team, ok := value.(teamdomain.Team)
	return team, ok
}

// SyncRateLimited throttles subscription sync attempts per team.
func (s *Server) SyncRateLimited() gin.HandlerFunc {
	return func(c *gin.Context) {
		team, ok := teamFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		res, err := s.syncLimiter.Allow(c.Request.Context(), "sync:"+strconv.FormatInt(int64(team.ID), 10))
		if err != nil {
			// Rate limiting is protective, not load-bearing; fail open.
			c.Next()
			return
		}
		if !res.Allowed {
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
			}
			AbortWithError(c, ErrTooMany)
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
