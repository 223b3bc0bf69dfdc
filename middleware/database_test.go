package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/carewell/patient-registry/model"
	"github.com/gin-gonic/gin"
)

func TestDatabaseMiddlewareInjectsDB(t *testing.T) {
	db := setupAuthTestDB(t, "inject")

	r := gin.New()
	r.Use(DatabaseMiddleware(db))
	r.GET("/check", func(c *gin.Context) {
		if GetDB(c) == nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/check", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected DB in context, got status %d", rr.Code)
	}
}

func TestGetDBWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	if GetDB(c) != nil {
		t.Fatal("expected nil DB without middleware")
	}
}

func TestGetAuthPatientAbsent(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	if _, ok := GetAuthPatient(c); ok {
		t.Fatal("expected no principal on unauthenticated context")
	}
}

func TestGetAuthPatientRoundTrip(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)

	p := &model.Patient{Email: "user@x.com"}
	setAuthPatient(c, p)

	got, ok := GetAuthPatient(c)
	if !ok || got.Email != "user@x.com" {
		t.Fatalf("expected attached principal, got ok=%v %+v", ok, got)
	}
}
