package ports

import (
	"context"

	"github.com/clinicrpm/rpm-portal/internal/core/domain"
)

// PatientRepository persists patients and their readings.
// Every patient lookup is scoped to the owning clinic.
type PatientRepository interface {
	// ListByClinic returns the clinic's patients with their latest reading filled in.
	ListByClinic(ctx context.Context, clinicID int64) ([]*domain.Patient, error)
	// FindByID returns domain.ErrPatientNotFound if the patient does not belong to clinicID.
	FindByID(ctx context.Context, id, clinicID int64) (*domain.Patient, error)
	Create(ctx context.Context, p *domain.Patient) error
	Update(ctx context.Context, p *domain.Patient) error
	// Delete removes the patient and all of its readings atomically.
	Delete(ctx context.Context, id, clinicID int64) error

	ListReadings(ctx context.Context, patientID int64) ([]domain.Reading, error)
	CreateReading(ctx context.Context, r *domain.Reading) error
}
