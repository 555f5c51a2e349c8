package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Haiikyu/reveelbox-sub002/internal/common/errors"
	usermodels "github.com/Haiikyu/reveelbox-sub002/internal/features/user/models"
	userrepo "github.com/Haiikyu/reveelbox-sub002/internal/features/user/repository"
)

const profileKey = "profile"

// Identity resolves the pre-authenticated caller. Authentication itself is
// the upstream gateway's job; it forwards the resolved user id in X-User-ID
// and this middleware attaches the full profile to the request.
func Identity(profiles userrepo.ProfileRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("X-User-ID")
		if header == "" {
			SendError(c, apperrors.NewUnauthorizedError("missing caller identity"))
			return
		}

		userID, err := strconv.ParseInt(header, 10, 64)
		if err != nil {
			SendError(c, apperrors.NewUnauthorizedError("malformed caller identity"))
			return
		}

		profile, err := profiles.GetByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, userrepo.ErrProfileNotFound) {
				SendError(c, apperrors.NewUserNotFoundError(userID))
				return
			}
			SendError(c, apperrors.NewDatabaseError("resolve profile", err))
			return
		}

		c.Set(profileKey, profile)
		c.Next()
	}
}

// Profile returns the resolved caller profile, or nil outside an
// authenticated request.
func Profile(c *gin.Context) *usermodels.Profile {
	if v, exists := c.Get(profileKey); exists {
		if p, ok := v.(*usermodels.Profile); ok {
			return p
		}
	}
	return nil
}
