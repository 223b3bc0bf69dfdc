// main.go
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/carewell/patient-registry/config"
	"github.com/carewell/patient-registry/endpoint"
	"github.com/carewell/patient-registry/middleware"
	"github.com/carewell/patient-registry/model"
	"github.com/carewell/patient-registry/util"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load the configuration
	cfg := config.LoadConfig()

	// The JWT secret is read from the environment at package init, which can
	// run before godotenv has loaded .env. Re-read it here once the config
	// layer has had a chance to populate the environment.
	if secret := os.Getenv("JWTSECRET"); secret != "" {
		util.SetJWTSecret(secret)
	}

	db, err := config.ConnectMySQL()
	if err != nil {
		log.Fatalf("Error connecting to MySQL: %v", err)
	}
	if err := db.AutoMigrate(&model.Patient{}, &model.SecurityLog{}); err != nil {
		log.Fatalf("Error running migrations: %v", err)
	}
	util.SetSecurityLoggerDB(db)

	// Redis backs token revocation and rate limiting. Both degrade
	// gracefully, so a connection failure is not fatal.
	if _, err := config.ConnectRedis(); err != nil {
		log.Printf("Warning: Redis unavailable, token revocation and rate limiting disabled: %v", err)
	}

	// Set Gin mode from config
	gin.SetMode(cfg.GinMode)

	// Create a Gin router with default middleware
	router := gin.Default()
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DatabaseMiddleware(db))
	router.Use(middleware.EndpointCallLogger())

	// Basic HTTP handler for root path
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", cfg.AppName),
		})
	})

	router.POST("/login", middleware.RateLimiter(middleware.RateLimitConfig{}), endpoint.Login)
	router.DELETE("/logout", middleware.Auth(), endpoint.Logout)

	router.POST("/patients", middleware.Auth(model.RightManagePatients), endpoint.CreatePatient)
	router.GET("/patients", middleware.Auth(model.RightGetPatients), endpoint.ListPatients)
	router.GET("/patients/:id", middleware.Auth(model.RightGetPatients), endpoint.GetPatient)
	router.PATCH("/patients/:id", middleware.Auth(model.RightManagePatients), endpoint.UpdatePatient)
	router.DELETE("/patients/:id", middleware.Auth(model.RightManagePatients), endpoint.DeletePatient)

	// Start server on specified port
	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
