package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/carewell/patient-registry/config"
	"github.com/carewell/patient-registry/model"
	"github.com/carewell/patient-registry/service"
	"github.com/carewell/patient-registry/util"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const bearerPrefix = "Bearer "

// AuthClaims are the JWT claims issued at login and verified here.
type AuthClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Auth authenticates the bearer token and authorizes the request against the
// declared rights. On success the canonical patient record is attached to the
// context for downstream handlers. Routes with no declared rights only
// require a valid token. When the rights check fails, the request is still
// allowed if the :id path parameter equals the caller's own id.
func Auth(requiredRights ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c)
		if err != nil {
			util.LogUnauthorizedAccess(c.ClientIP(), c.Request.URL.Path, err.Error())
			abortUnauthorized(c, err)
			return
		}

		claims, err := parseToken(tokenString)
		if err != nil {
			util.LogUnauthorizedAccess(c.ClientIP(), c.Request.URL.Path, "invalid token")
			abortUnauthorized(c, fmt.Errorf("invalid or expired token"))
			return
		}

		if isRevoked(c.Request.Context(), tokenString) {
			util.LogUnauthorizedAccess(c.ClientIP(), c.Request.URL.Path, "revoked token")
			abortUnauthorized(c, fmt.Errorf("token has been revoked"))
			return
		}

		db := GetDB(c)
		if db == nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Database connection not available", Err: fmt.Errorf("db is nil")})
			c.Abort()
			return
		}

		// Re-fetch the canonical record so stale token claims (renamed,
		// demoted or deleted accounts) cannot authorize a request.
		patient, err := service.NewPatientService(db).
			GetByEmail(c.Request.Context(), claims.Email, service.DefaultPatientFields...)
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to resolve account", Err: err})
			c.Abort()
			return
		}
		if patient == nil {
			util.LogUnauthorizedAccess(c.ClientIP(), c.Request.URL.Path, "account no longer exists")
			abortUnauthorized(c, fmt.Errorf("account no longer exists"))
			return
		}

		setAuthPatient(c, patient)

		if len(requiredRights) == 0 {
			c.Next()
			return
		}

		if model.RoleHasRights(patient.Role, requiredRights) {
			c.Next()
			return
		}

		if selfAccess(c, patient) {
			c.Next()
			return
		}

		util.LogForbiddenAccess(patient.ID, patient.Email, c.ClientIP(), c.Request.URL.Path, requiredRights)
		util.CallUserForbidden(c, util.APIErrorParams{
			Msg: "Forbidden",
			Err: fmt.Errorf("insufficient rights"),
		})
		c.Abort()
	}
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", fmt.Errorf("authorization header missing")
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", fmt.Errorf("authorization header is not a bearer token")
	}
	token := strings.TrimPrefix(header, bearerPrefix)
	if token == "" {
		return "", fmt.Errorf("bearer token is empty")
	}
	return token, nil
}

func parseToken(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return util.GetJWTSecretByte(), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Email == "" {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// isRevoked consults the Redis revocation list. Best-effort: without Redis the
// token's own expiry is the only invalidation.
func isRevoked(ctx context.Context, tokenString string) bool {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return false
	}
	exists, err := rdb.Exists(ctx, RevocationKey(tokenString)).Result()
	if err != nil {
		return false
	}
	return exists > 0
}

// RevocationKey builds the Redis key marking a token as revoked.
func RevocationKey(tokenString string) string {
	return fmt.Sprintf("revoked:%s", tokenString)
}

func selfAccess(c *gin.Context, patient *model.Patient) bool {
	subject := c.Param("id")
	return subject != "" && subject == fmt.Sprintf("%d", patient.ID)
}

func abortUnauthorized(c *gin.Context, err error) {
	util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Please authenticate", Err: err})
	c.Abort()
}
