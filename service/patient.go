package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carewell/patient-registry/model"
	"github.com/carewell/patient-registry/util"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Sentinel errors surfaced to handlers. Anything else coming out of this
// package is an unexpected store failure.
var (
	ErrDuplicateEmail  = errors.New("email already taken")
	ErrPatientNotFound = errors.New("patient not found")
)

// DefaultPatientFields is the safe projection used for client-facing reads.
// It never includes the password hash.
var DefaultPatientFields = []string{
	"id", "email", "name", "role", "is_email_verified",
	"insurance_provider", "insurance_number", "date_of_birth", "gender",
	"phone", "address", "blood_type", "allergies", "conditions",
	"medications", "last_visit", "created_at", "updated_at",
}

// verificationPatientFields additionally carries the password hash. It is the
// default for GetByEmail, which serves credential verification. Handlers that
// serialize a patient must pass DefaultPatientFields instead.
var verificationPatientFields = append([]string{"password"}, DefaultPatientFields...)

// sortablePatientColumns whitelists the single-field sort targets. Anything
// else leaves the result unsorted rather than interpolating caller input
// into the ORDER BY clause.
var sortablePatientColumns = map[string]bool{
	"id": true, "email": true, "name": true, "role": true,
	"gender": true, "blood_type": true, "insurance_provider": true,
	"date_of_birth": true, "last_visit": true,
	"created_at": true, "updated_at": true,
}

// PatientFilter holds the equality filters supported by Query. Empty strings
// mean the filter is absent.
type PatientFilter struct {
	Name              string
	Role              string
	Gender            string
	InsuranceProvider string
	BloodType         string
}

// QueryOptions controls pagination and ordering. Page defaults to 1 and
// Limit to 10; SortDir defaults to desc. An empty SortBy leaves the result
// unsorted.
type QueryOptions struct {
	Page    int
	Limit   int
	SortBy  string
	SortDir string
}

// PatientPatch carries a partial update. Nil pointers mean the field is
// absent and must be left unchanged.
type PatientPatch struct {
	Email             *string
	Name              *string
	Password          *string
	Role              *string
	IsEmailVerified   *bool
	InsuranceProvider *string
	InsuranceNumber   *string
	DateOfBirth       *time.Time
	Gender            *string
	Phone             *string
	Address           datatypes.JSON
	BloodType         *string
	Allergies         datatypes.JSON
	Conditions        datatypes.JSON
	Medications       datatypes.JSON
	LastVisit         *time.Time
}

// IsEmpty reports whether the patch carries no fields at all.
func (p PatientPatch) IsEmpty() bool {
	return len(p.changes()) == 0
}

func (p PatientPatch) changes() map[string]interface{} {
	updates := map[string]interface{}{}
	if p.Email != nil {
		updates["email"] = *p.Email
	}
	if p.Name != nil {
		updates["name"] = *p.Name
	}
	if p.Password != nil {
		updates["password"] = *p.Password
	}
	if p.Role != nil {
		updates["role"] = *p.Role
	}
	if p.IsEmailVerified != nil {
		updates["is_email_verified"] = *p.IsEmailVerified
	}
	if p.InsuranceProvider != nil {
		updates["insurance_provider"] = *p.InsuranceProvider
	}
	if p.InsuranceNumber != nil {
		updates["insurance_number"] = *p.InsuranceNumber
	}
	if p.DateOfBirth != nil {
		updates["date_of_birth"] = *p.DateOfBirth
	}
	if p.Gender != nil {
		updates["gender"] = *p.Gender
	}
	if p.Phone != nil {
		updates["phone"] = *p.Phone
	}
	if p.Address != nil {
		updates["address"] = p.Address
	}
	if p.BloodType != nil {
		updates["blood_type"] = *p.BloodType
	}
	if p.Allergies != nil {
		updates["allergies"] = p.Allergies
	}
	if p.Conditions != nil {
		updates["conditions"] = p.Conditions
	}
	if p.Medications != nil {
		updates["medications"] = p.Medications
	}
	if p.LastVisit != nil {
		updates["last_visit"] = *p.LastVisit
	}
	return updates
}

// PatientService implements CRUD and query operations over patient records.
type PatientService struct {
	db *gorm.DB
}

func NewPatientService(db *gorm.DB) *PatientService {
	return &PatientService{db: db}
}

// Create stores a new patient after hashing the password. The email
// uniqueness check here is advisory (read-then-write); the unique index on
// the email column is what actually guarantees it under concurrent creates.
func (s *PatientService) Create(ctx context.Context, email, password, name, role string) (*model.Patient, error) {
	existing, err := s.GetByEmail(ctx, email, "id", "email")
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	hashed, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	if role == "" {
		role = model.RoleUser
	}

	patient := model.Patient{
		Email:    email,
		Name:     name,
		Password: hashed,
		Role:     role,
	}
	if err := s.db.WithContext(ctx).Create(&patient).Error; err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	return &patient, nil
}

// Query returns a page of projected patients matching the filter, plus the
// total number of matches. The offset is (page-1)*limit.
func (s *PatientService) Query(ctx context.Context, filter PatientFilter, opts QueryOptions, fields ...string) ([]model.Patient, int64, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	query := applyPatientFilter(s.db.WithContext(ctx).Model(&model.Patient{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	query = query.Select(projection(fields, DefaultPatientFields)).
		Offset(offset).
		Limit(limit)
	query = applyPatientOrder(query, opts.SortBy, opts.SortDir)

	var patients []model.Patient
	if err := query.Find(&patients).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query patients: %w", err)
	}
	return patients, total, nil
}

// GetByID returns the projected patient, or nil without error when the id
// does not resolve.
func (s *PatientService) GetByID(ctx context.Context, id uint, fields ...string) (*model.Patient, error) {
	return s.getOne(ctx, projection(fields, DefaultPatientFields), "id = ?", id)
}

// GetByEmail returns the projected patient, or nil without error when no
// record owns the email. The default projection includes the password hash
// for verification codepaths; pass DefaultPatientFields when the result is
// serialized to a client.
func (s *PatientService) GetByEmail(ctx context.Context, email string, fields ...string) (*model.Patient, error) {
	return s.getOne(ctx, projection(fields, verificationPatientFields), "email = ?", email)
}

// UpdateByID applies a partial update and returns the updated projected
// patient. Absent patch fields are left untouched.
func (s *PatientService) UpdateByID(ctx context.Context, id uint, patch PatientPatch) (*model.Patient, error) {
	current, err := s.GetByID(ctx, id, "id", "email")
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrPatientNotFound
	}

	if patch.Email != nil && *patch.Email != current.Email {
		taken, err := s.emailTakenByOther(ctx, *patch.Email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDuplicateEmail
		}
	}

	if patch.Password != nil {
		hashed, err := hashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		patch.Password = &hashed
	}

	if updates := patch.changes(); len(updates) > 0 {
		err := s.db.WithContext(ctx).Model(&model.Patient{}).Where("id = ?", id).Updates(updates).Error
		if err != nil {
			return nil, fmt.Errorf("failed to update patient: %w", err)
		}
	}

	return s.GetByID(ctx, id)
}

// DeleteByID removes the patient and returns its pre-deletion projection.
// The delete is unscoped: a soft-deleted row would keep holding the email's
// unique index slot, so the record is destroyed outright and the email can
// be registered again.
func (s *PatientService) DeleteByID(ctx context.Context, id uint) (*model.Patient, error) {
	patient, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	if err := s.db.WithContext(ctx).Unscoped().Delete(&model.Patient{}, id).Error; err != nil {
		return nil, fmt.Errorf("failed to delete patient: %w", err)
	}
	return patient, nil
}

func (s *PatientService) getOne(ctx context.Context, fields []string, cond string, arg interface{}) (*model.Patient, error) {
	var patient model.Patient
	err := s.db.WithContext(ctx).Select(fields).Where(cond, arg).First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patient: %w", err)
	}
	return &patient, nil
}

func (s *PatientService) emailTakenByOther(ctx context.Context, email string, excludeID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Patient{}).
		Where("email = ? AND id != ?", email, excludeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	return count > 0, nil
}

func hashPassword(plain string) (string, error) {
	salt, err := util.GenerateSalt()
	if err != nil {
		return "", fmt.Errorf("failed to generate password salt: %w", err)
	}
	hashed, err := util.HashPasswordArgon2(plain, salt)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hashed, nil
}

func projection(fields, defaults []string) []string {
	if len(fields) == 0 {
		return defaults
	}
	return fields
}

func applyPatientFilter(query *gorm.DB, filter PatientFilter) *gorm.DB {
	if filter.Name != "" {
		query = query.Where("name = ?", filter.Name)
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Gender != "" {
		query = query.Where("gender = ?", filter.Gender)
	}
	if filter.InsuranceProvider != "" {
		query = query.Where("insurance_provider = ?", filter.InsuranceProvider)
	}
	if filter.BloodType != "" {
		query = query.Where("blood_type = ?", filter.BloodType)
	}
	return query
}

func applyPatientOrder(query *gorm.DB, sortBy, sortDir string) *gorm.DB {
	if sortBy == "" || !sortablePatientColumns[sortBy] {
		return query
	}
	dir := "DESC"
	if strings.EqualFold(sortDir, "asc") {
		dir = "ASC"
	}
	return query.Order(fmt.Sprintf("%s %s", sortBy, dir))
}
