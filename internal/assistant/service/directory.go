package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"medassist/internal/directory"
	apperrors "medassist/pkg/errors"
	"medassist/pkg/logger"
	"medassist/pkg/model"
	"medassist/pkg/sanitizer"
)

// DirectoryService serves the cached doctor directory and the admin
// operations that change it on the backend.
type DirectoryService interface {
	List(search, specialty string) []model.Doctor
	Specialties() []string
	GetByID(id int64) (*model.Doctor, error)
	BySpecialty(ctx context.Context, specialty string) ([]model.Doctor, error)
	Create(ctx context.Context, req model.DoctorCreate) (*model.Doctor, error)
	Refresh(ctx context.Context) ([]model.Doctor, error)
}

type directoryService struct {
	directory *directory.Directory
	backend   DoctorBackend
	validate  *validator.Validate
	log       *logger.Logger
}

func NewDirectoryService(dir *directory.Directory, backend DoctorBackend, log *logger.Logger) DirectoryService {
	if log == nil {
		log = logger.Discard()
	}
	return &directoryService{
		directory: dir,
		backend:   backend,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		log:       log,
	}
}

func (s *directoryService) List(search, specialty string) []model.Doctor {
	return s.directory.Filter(sanitizer.Trim(search), sanitizer.Trim(specialty))
}

func (s *directoryService) Specialties() []string {
	return s.directory.Specialties()
}

func (s *directoryService) GetByID(id int64) (*model.Doctor, error) {
	doctor, ok := s.directory.FindByID(id)
	if !ok {
		return nil, apperrors.NotFoundWithID("Doctor", strconv.FormatInt(id, 10))
	}
	return &doctor, nil
}

func (s *directoryService) BySpecialty(ctx context.Context, specialty string) ([]model.Doctor, error) {
	specialty = sanitizer.Trim(specialty)
	if specialty == "" {
		return nil, apperrors.InvalidInput("Specialty cannot be empty")
	}
	return s.backend.GetBySpecialty(ctx, specialty)
}

// Create registers a doctor with the backend and reloads the cache so the
// new doctor is selectable immediately. A failed reload is logged; the next
// scheduled refresh picks the doctor up.
func (s *directoryService) Create(ctx context.Context, req model.DoctorCreate) (*model.Doctor, error) {
	req.Name = sanitizer.Trim(req.Name)
	req.Specialty = sanitizer.Trim(req.Specialty)
	req.Department = sanitizer.Trim(req.Department)

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]any, len(verrs))
			for _, fe := range verrs {
				details[strings.ToLower(fe.Field())] = describeTag(fe)
			}
			return nil, apperrors.Validation("Doctor has invalid fields", details)
		}
		return nil, apperrors.Internal("Failed to validate doctor", err)
	}

	doctor, err := s.backend.Create(ctx, req)
	if err != nil {
		s.log.Error("Failed to create doctor", "name", req.Name, "error", err)
		return nil, err
	}
	s.log.Info("Doctor created", "doctor_id", doctor.ID, "specialty", doctor.Specialty)

	if _, err := s.directory.Load(ctx); err != nil {
		s.log.Warn("Directory reload after create failed", "error", err)
	}
	return doctor, nil
}

func (s *directoryService) Refresh(ctx context.Context) ([]model.Doctor, error) {
	doctors, err := s.directory.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doctors, nil
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
