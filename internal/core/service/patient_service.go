package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicrpm/rpm-portal/internal/core/domain"
	"github.com/clinicrpm/rpm-portal/internal/core/ports"
)

const (
	minPatientAge = 1
	maxPatientAge = 120

	readingDateLayout = "2006-01-02"
	readingTimeLayout = "15:04"
)

type patientService struct {
	repo ports.PatientRepository
	log  zerolog.Logger
}

// NewPatientService returns a PatientService implementation.
func NewPatientService(repo ports.PatientRepository, log zerolog.Logger) ports.PatientService {
	return &patientService{repo: repo, log: log}
}

func (s *patientService) List(ctx context.Context, clinicID int64) ([]*domain.Patient, error) {
	patients, err := s.repo.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return patients, nil
}

func (s *patientService) Get(ctx context.Context, clinicID, id int64) (*domain.Patient, error) {
	p, err := s.repo.FindByID(ctx, id, clinicID)
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	readings, err := s.repo.ListReadings(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("get patient readings: %w", err)
	}
	if readings == nil {
		readings = []domain.Reading{}
	}
	p.Readings = readings
	return p, nil
}

func (s *patientService) Create(ctx context.Context, clinicID int64, in ports.PatientInput) (*domain.Patient, error) {
	if err := validatePatientInput(&in); err != nil {
		return nil, err
	}
	p := &domain.Patient{
		ClinicID:         clinicID,
		Name:             in.Name,
		Age:              in.Age,
		MedicalCondition: in.MedicalCondition,
		Notes:            in.Notes,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create patient: %w", err)
	}
	s.log.Info().Int64("patient_id", p.ID).Int64("clinic_id", clinicID).Msg("patient created")
	return p, nil
}

func (s *patientService) Update(ctx context.Context, clinicID, id int64, in ports.PatientInput) error {
	if err := validatePatientInput(&in); err != nil {
		return err
	}
	p := &domain.Patient{
		ID:               id,
		ClinicID:         clinicID,
		Name:             in.Name,
		Age:              in.Age,
		MedicalCondition: in.MedicalCondition,
		Notes:            in.Notes,
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	return nil
}

func (s *patientService) Delete(ctx context.Context, clinicID, id int64) error {
	if err := s.repo.Delete(ctx, id, clinicID); err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	s.log.Info().Int64("patient_id", id).Int64("clinic_id", clinicID).Msg("patient deleted")
	return nil
}

func (s *patientService) AddReading(ctx context.Context, clinicID int64, in ports.ReadingInput) (*domain.Reading, error) {
	if err := validateReadingInput(in); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByID(ctx, in.PatientID, clinicID); err != nil {
		if errors.Is(err, domain.ErrPatientNotFound) {
			return nil, domain.ErrPatientNotAuthorized
		}
		return nil, fmt.Errorf("add reading: %w", err)
	}

	r := &domain.Reading{
		PatientID: in.PatientID,
		Date:      in.Date,
		Time:      in.Time,
		Systolic:  in.Systolic,
		Diastolic: in.Diastolic,
		Notes:     strings.TrimSpace(in.Notes),
	}
	if err := s.repo.CreateReading(ctx, r); err != nil {
		return nil, fmt.Errorf("add reading: %w", err)
	}
	return r, nil
}

func validatePatientInput(in *ports.PatientInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.MedicalCondition = strings.TrimSpace(in.MedicalCondition)
	in.Notes = strings.TrimSpace(in.Notes)

	switch {
	case in.Name == "" || in.MedicalCondition == "":
		return fmt.Errorf("%w: name, age and medical condition are required", domain.ErrInvalidPatient)
	case in.Age < minPatientAge || in.Age > maxPatientAge:
		return fmt.Errorf("%w: age must be between %d-%d", domain.ErrInvalidPatient, minPatientAge, maxPatientAge)
	}
	return nil
}

func validateReadingInput(in ports.ReadingInput) error {
	if in.PatientID <= 0 {
		return fmt.Errorf("%w: patient_id is required", domain.ErrInvalidReading)
	}
	if _, err := time.Parse(readingDateLayout, in.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrInvalidReading)
	}
	if _, err := time.Parse(readingTimeLayout, in.Time); err != nil {
		return fmt.Errorf("%w: time must be HH:MM", domain.ErrInvalidReading)
	}
	if in.Systolic <= 0 || in.Diastolic <= 0 {
		return fmt.Errorf("%w: systolic and diastolic must be positive", domain.ErrInvalidReading)
	}
	return nil
}
