package middleware

import (
	"github.com/carewell/patient-registry/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	dbContextKey        = "db"
	principalContextKey = "auth_patient"
)

// DatabaseMiddleware stores the shared gorm connection in the request context
// so handlers can retrieve it with GetDB.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(dbContextKey, db)
		c.Next()
	}
}

// GetDB returns the gorm connection placed in the context by
// DatabaseMiddleware, or nil when it is absent.
func GetDB(c *gin.Context) *gorm.DB {
	value, exists := c.Get(dbContextKey)
	if !exists {
		return nil
	}
	db, ok := value.(*gorm.DB)
	if !ok {
		return nil
	}
	return db
}

// setAuthPatient attaches the authenticated principal for downstream handlers.
func setAuthPatient(c *gin.Context, patient *model.Patient) {
	c.Set(principalContextKey, patient)
}

// GetAuthPatient returns the canonical patient record attached by the auth
// middleware, or (nil, false) when the request was not authenticated.
func GetAuthPatient(c *gin.Context) (*model.Patient, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return nil, false
	}
	patient, ok := value.(*model.Patient)
	if !ok || patient == nil {
		return nil, false
	}
	return patient, true
}
