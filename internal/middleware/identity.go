package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brightsteps/brightsteps-backend/internal/model"
	"github.com/brightsteps/brightsteps-backend/internal/response"
)

// ContextKeyIdentity is the Gin context key holding the resolved identity.
const ContextKeyIdentity = "exam_identity"

// RequireIdentity resolves the exam taker from identity headers set by the
// upstream gateway. Authentication itself happens upstream; this service only
// needs a stable key per student or guest device.
//
//	X-Student-ID: logged-in student identifier
//	X-Guest-ID:   device-generated identifier for anonymous practice runs
//	X-Class-ID, X-School-ID: optional, passed through to grading reports
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := model.Identity{
			StudentID: strings.TrimSpace(c.GetHeader("X-Student-ID")),
			GuestID:   strings.TrimSpace(c.GetHeader("X-Guest-ID")),
			ClassID:   strings.TrimSpace(c.GetHeader("X-Class-ID")),
			SchoolID:  strings.TrimSpace(c.GetHeader("X-School-ID")),
		}

		if identity.StudentID == "" && identity.GuestID == "" {
			response.Fail(c, http.StatusBadRequest, response.ErrIdentityRequired)
			c.Abort()
			return
		}

		c.Set(ContextKeyIdentity, identity)
		c.Next()
	}
}

// GetIdentity returns the identity resolved by RequireIdentity, or a zero
// value when the middleware did not run.
func GetIdentity(c *gin.Context) model.Identity {
	v, ok := c.Get(ContextKeyIdentity)
	if !ok {
		return model.Identity{}
	}
	identity, _ := v.(model.Identity)
	return identity
}
