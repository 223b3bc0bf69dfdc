package endpoint

import (
	"fmt"
	"strconv"

	"github.com/carewell/patient-registry/middleware"
	"github.com/carewell/patient-registry/service"
	"github.com/carewell/patient-registry/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func bindJSONOrRespond(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: msg, Err: err})
		return false
	}
	return true
}

func getDBOrRespond(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database connection not available", Err: fmt.Errorf("db is nil")})
		return nil, false
	}
	return db, true
}

func patientServiceOrRespond(c *gin.Context) (*service.PatientService, bool) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return nil, false
	}
	return service.NewPatientService(db), true
}

// parseIDParam parses the "id" path parameter into a uint and returns an error if invalid.
func parseIDParam(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("patient ID must be a valid integer")
	}
	if id <= 0 {
		return 0, fmt.Errorf("patient ID must be a positive integer")
	}
	return uint(id), nil
}

// parsePositiveInt parses a positive integer from a query value returning a default
// when the value is missing or invalid. If max > 0 it caps the returned value.
func parsePositiveInt(q string, defaultVal, max int) int {
	if q == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(q)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if max > 0 && v > max {
		return max
	}
	return v
}
