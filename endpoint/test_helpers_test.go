package endpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/carewell/patient-registry/middleware"
	"github.com/carewell/patient-registry/model"
	"github.com/carewell/patient-registry/util"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupPatientAPI builds an in-memory database and a router with the same
// middleware chain and routes as main.go.
func setupPatientAPI(t *testing.T, name string) (*gin.Engine, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb_ep_%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&model.Patient{}); err != nil {
		t.Fatalf("failed to auto-migrate: %v", err)
	}

	r := gin.New()
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.DatabaseMiddleware(db))

	r.POST("/login", Login)
	r.DELETE("/logout", middleware.Auth(), Logout)

	r.POST("/patients", middleware.Auth(model.RightManagePatients), CreatePatient)
	r.GET("/patients", middleware.Auth(model.RightGetPatients), ListPatients)
	r.GET("/patients/:id", middleware.Auth(model.RightGetPatients), GetPatient)
	r.PATCH("/patients/:id", middleware.Auth(model.RightManagePatients), UpdatePatient)
	r.DELETE("/patients/:id", middleware.Auth(model.RightManagePatients), DeletePatient)

	return r, db
}

// seedAccount inserts a patient row directly, bypassing the service, with a
// real Argon2id hash so login flows can verify it.
func seedAccount(t *testing.T, db *gorm.DB, email, password, role string) model.Patient {
	t.Helper()
	salt, err := util.GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	hashed, err := util.HashPasswordArgon2(password, salt)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	p := model.Patient{Email: email, Name: "Seeded Account", Password: hashed, Role: role}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed account %s: %v", email, err)
	}
	return p
}

func tokenFor(t *testing.T, email, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": email,
		"role":  role,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(util.GetJWTSecretByte())
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

type requestParams struct {
	method string
	path   string
	body   interface{}
	token  string
}

func doRequest(t *testing.T, r *gin.Engine, params requestParams) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if params.body != nil {
		if err := json.NewEncoder(&buf).Encode(params.body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(params.method, params.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if params.token != "" {
		req.Header.Set("Authorization", "Bearer "+params.token)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) util.APIResponse {
	t.Helper()
	var resp util.APIResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return resp
}

func dataMap(t *testing.T, resp util.APIResponse) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object data, got %T", resp.Data)
	}
	return m
}
