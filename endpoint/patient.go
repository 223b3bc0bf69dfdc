package endpoint

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carewell/patient-registry/model"
	"github.com/carewell/patient-registry/service"
	"github.com/carewell/patient-registry/util"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

const maxListLimit = 100

type createPatientRequest struct {
	Email    string `json:"email" binding:"required,email" example:"john.smith@email.com"`
	Password string `json:"password" binding:"required,min=8" example:"password123"`
	Name     string `json:"name" example:"John Smith"`
	Role     string `json:"role" example:"USER"`
}

type updatePatientRequest struct {
	Email             *string        `json:"email" binding:"omitempty,email"`
	Password          *string        `json:"password" binding:"omitempty,min=8"`
	Name              *string        `json:"name"`
	Role              *string        `json:"role"`
	IsEmailVerified   *bool          `json:"is_email_verified"`
	InsuranceProvider *string        `json:"insurance_provider"`
	InsuranceNumber   *string        `json:"insurance_number"`
	DateOfBirth       *time.Time     `json:"date_of_birth"`
	Gender            *string        `json:"gender"`
	Phone             *string        `json:"phone"`
	Address           datatypes.JSON `json:"address"`
	BloodType         *string        `json:"blood_type"`
	Allergies         datatypes.JSON `json:"allergies"`
	Conditions        datatypes.JSON `json:"conditions"`
	Medications       datatypes.JSON `json:"medications"`
	LastVisit         *time.Time     `json:"last_visit"`
}

func (req *updatePatientRequest) toPatch() service.PatientPatch {
	return service.PatientPatch{
		Email:             req.Email,
		Name:              req.Name,
		Password:          req.Password,
		Role:              req.Role,
		IsEmailVerified:   req.IsEmailVerified,
		InsuranceProvider: req.InsuranceProvider,
		InsuranceNumber:   req.InsuranceNumber,
		DateOfBirth:       req.DateOfBirth,
		Gender:            req.Gender,
		Phone:             req.Phone,
		Address:           req.Address,
		BloodType:         req.BloodType,
		Allergies:         req.Allergies,
		Conditions:        req.Conditions,
		Medications:       req.Medications,
		LastVisit:         req.LastVisit,
	}
}

// CreatePatient godoc
// @Summary      Create a patient
// @Description  Create a new patient record. Requires the managePatients right.
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body createPatientRequest true "Patient details"
// @Success      201 {object} util.APIResponse "Patient created"
// @Failure      400 {object} util.APIResponse "Invalid request or email already taken"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patients [post]
func CreatePatient(c *gin.Context) {
	var req createPatientRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	if req.Role != "" && !model.IsValidRole(req.Role) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid role",
			Err: fmt.Errorf("role must be one of %s", strings.Join(model.Roles(), ", ")),
		})
		return
	}

	svc, ok := patientServiceOrRespond(c)
	if !ok {
		return
	}

	patient, err := svc.Create(c.Request.Context(), req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateEmail) {
			util.CallUserError(c, util.APIErrorParams{Msg: "Email already taken", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create patient", Err: err})
		return
	}

	util.CallCreated(c, util.APISuccessParams{Msg: "Patient created", Data: patient})
}

type patientListQuery struct {
	Filter service.PatientFilter
	Opts   service.QueryOptions
}

func parsePatientListQuery(c *gin.Context) patientListQuery {
	sortBy, sortDir := parseSortParam(c.Query("sortBy"))
	return patientListQuery{
		Filter: service.PatientFilter{
			Name:              c.Query("name"),
			Role:              c.Query("role"),
			Gender:            c.Query("gender"),
			InsuranceProvider: c.Query("insuranceProvider"),
			BloodType:         c.Query("bloodType"),
		},
		Opts: service.QueryOptions{
			Page:    parsePositiveInt(c.Query("page"), 1, 0),
			Limit:   parsePositiveInt(c.Query("limit"), 10, maxListLimit),
			SortBy:  sortBy,
			SortDir: sortDir,
		},
	}
}

// parseSortParam splits the sortBy query value of the form "field:asc|desc".
// A bare field name sorts descending.
func parseSortParam(raw string) (sortBy, sortDir string) {
	if raw == "" {
		return "", ""
	}
	parts := strings.SplitN(raw, ":", 2)
	sortBy = parts[0]
	if len(parts) == 2 {
		sortDir = strings.ToLower(parts[1])
	}
	return sortBy, sortDir
}

// ListPatients godoc
// @Summary      List patients
// @Description  Get a paginated list of patients with optional filtering and sorting. Requires the getPatients right.
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        name query string false "Filter by patient name"
// @Param        role query string false "Filter by role"
// @Param        gender query string false "Filter by gender"
// @Param        insuranceProvider query string false "Filter by insurance provider"
// @Param        bloodType query string false "Filter by blood type"
// @Param        sortBy query string false "Sort in the form field:asc|desc (ex. name:asc)"
// @Param        limit query int false "Results per page (default 10, max 100)"
// @Param        page query int false "Page number (default 1)"
// @Success      200 {object} util.APIResponse{data=object} "Patients retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patients [get]
func ListPatients(c *gin.Context) {
	query := parsePatientListQuery(c)

	svc, ok := patientServiceOrRespond(c)
	if !ok {
		return
	}

	patients, total, err := svc.Query(c.Request.Context(), query.Filter, query.Opts)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve patients", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Patients retrieved",
		Data: map[string]interface{}{
			"patients":      patients,
			"total":         total,
			"total_fetched": len(patients),
			"page":          query.Opts.Page,
			"limit":         query.Opts.Limit,
		},
	})
}

// GetPatient godoc
// @Summary      Get a patient
// @Description  Retrieve a patient record by ID. Requires the getPatients right or self-access.
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Patient ID"
// @Success      200 {object} util.APIResponse "Patient retrieved"
// @Failure      400 {object} util.APIResponse "Invalid patient id"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patients/{id} [get]
func GetPatient(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}

	svc, ok := patientServiceOrRespond(c)
	if !ok {
		return
	}

	patient, err := svc.GetByID(c.Request.Context(), id)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve patient", Err: err})
		return
	}
	if patient == nil {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Patient not found", Err: fmt.Errorf("patient %d not found", id)})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Patient retrieved", Data: patient})
}

// UpdatePatient godoc
// @Summary      Update a patient
// @Description  Partially update a patient record. Only supplied fields change. Requires the managePatients right or self-access.
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Patient ID"
// @Param        request body updatePatientRequest true "Fields to update"
// @Success      200 {object} util.APIResponse "Patient updated"
// @Failure      400 {object} util.APIResponse "Invalid request or email already taken"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patients/{id} [patch]
func UpdatePatient(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}

	var req updatePatientRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	patch := req.toPatch()
	if patch.IsEmpty() {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "At least one field must be provided",
			Err: fmt.Errorf("no fields to update"),
		})
		return
	}

	if req.Role != nil && !model.IsValidRole(*req.Role) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid role",
			Err: fmt.Errorf("role must be one of %s", strings.Join(model.Roles(), ", ")),
		})
		return
	}
	if req.BloodType != nil && !model.IsValidBloodType(*req.BloodType) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Invalid blood type",
			Err: fmt.Errorf("blood type must be one of %s", strings.Join(model.BloodTypes, ", ")),
		})
		return
	}

	svc, ok := patientServiceOrRespond(c)
	if !ok {
		return
	}

	patient, err := svc.UpdateByID(c.Request.Context(), id, patch)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPatientNotFound):
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Patient not found", Err: err})
		case errors.Is(err, service.ErrDuplicateEmail):
			util.CallUserError(c, util.APIErrorParams{Msg: "Email already taken", Err: err})
		default:
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update patient", Err: err})
		}
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Patient updated", Data: patient})
}

// DeletePatient godoc
// @Summary      Delete a patient
// @Description  Delete a patient record by ID. Requires the managePatients right or self-access.
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Patient ID"
// @Success      204 "Patient deleted"
// @Failure      400 {object} util.APIResponse "Invalid patient id"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patients/{id} [delete]
func DeletePatient(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}

	svc, ok := patientServiceOrRespond(c)
	if !ok {
		return
	}

	if _, err := svc.DeleteByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, service.ErrPatientNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Patient not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete patient", Err: err})
		return
	}

	util.CallNoContent(c)
}
