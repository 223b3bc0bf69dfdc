package endpoint

import (
	"fmt"
	"time"

	"github.com/carewell/patient-registry/config"
	"github.com/carewell/patient-registry/middleware"
	"github.com/carewell/patient-registry/model"
	"github.com/carewell/patient-registry/util"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const tokenTTL = time.Hour

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"john.smith@email.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

type LoginResponse struct {
	Token     string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Role      string `json:"role" example:"USER"`
	PatientID uint   `json:"patient_id" example:"1"`
}

// Login godoc
// @Summary      Patient login
// @Description  Authenticate with email and password, returns a bearer token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} util.APIResponse{data=LoginResponse} "Login successful"
// @Failure      400 {object} util.APIResponse "Invalid request payload or credentials"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /login [post]
func Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	svc, ok := patientServiceOrRespond(c)
	if !ok {
		return
	}

	// Default GetByEmail projection includes the stored hash for verification.
	patient, err := svc.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		util.LogLoginFailure(req.Email, c.ClientIP(), c.Request.UserAgent(), "database error")
		util.CallServerError(c, util.APIErrorParams{Msg: "Database error", Err: err})
		return
	}
	if patient == nil {
		util.LogLoginFailure(req.Email, c.ClientIP(), c.Request.UserAgent(), "account not found")
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid email or password", Err: fmt.Errorf("account not found")})
		return
	}

	match, err := util.VerifyPassword(req.Password, patient.Password)
	if err != nil {
		util.LogLoginFailure(req.Email, c.ClientIP(), c.Request.UserAgent(), "password verification error")
		util.CallServerError(c, util.APIErrorParams{Msg: "Password verification failed", Err: err})
		return
	}
	if !match {
		util.LogLoginFailure(req.Email, c.ClientIP(), c.Request.UserAgent(), "invalid password")
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid email or password", Err: fmt.Errorf("invalid password")})
		return
	}

	tokenString, err := createJWTToken(patient)
	if err != nil {
		util.LogLoginFailure(req.Email, c.ClientIP(), c.Request.UserAgent(), "token generation failed")
		util.CallServerError(c, util.APIErrorParams{Msg: "Could not generate token", Err: err})
		return
	}

	util.LogLoginSuccess(patient.ID, patient.Email, c.ClientIP(), c.Request.UserAgent())
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Login successful",
		Data: LoginResponse{Token: tokenString, Role: patient.Role, PatientID: patient.ID},
	})
}

func createJWTToken(patient *model.Patient) (string, error) {
	claims := middleware.AuthClaims{
		Email: patient.Email,
		Role:  patient.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   fmt.Sprintf("%d", patient.ID),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(util.GetJWTSecretByte())
}

// Logout godoc
// @Summary      Patient logout
// @Description  Revoke the presented bearer token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} util.APIResponse "Logout successful"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Router       /logout [delete]
func Logout(c *gin.Context) {
	principal, ok := middleware.GetAuthPatient(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Please authenticate",
			Err: fmt.Errorf("no authenticated principal"),
		})
		return
	}

	// Mark the token revoked until its natural expiry. Best-effort: without
	// Redis the token simply remains valid until it expires.
	if rdb := config.GetRedisClient(); rdb != nil {
		header := c.GetHeader("Authorization")
		tokenString := header[len("Bearer "):]
		key := middleware.RevocationKey(tokenString)
		_ = rdb.Set(c.Request.Context(), key, principal.ID, tokenTTL).Err()
	}

	util.LogLogout(principal.ID, principal.Email, c.ClientIP(), c.Request.UserAgent())
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Logout successful"})
}
