package sqldb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicrpm/rpm-portal/internal/core/domain"
)

func TestPatientRepository_ClinicScoping(t *testing.T) {
	repo := NewPatientRepository(newTestDB(t))
	ctx := context.Background()

	p := &domain.Patient{ClinicID: 1, Name: "Ann", Age: 70, MedicalCondition: "Hypertension"}
	require.NoError(t, repo.Create(ctx, p))

	_, err := repo.FindByID(ctx, p.ID, 2)
	assert.ErrorIs(t, err, domain.ErrPatientNotFound)

	p.ClinicID = 2
	p.Name = "Stolen"
	assert.ErrorIs(t, repo.Update(ctx, p), domain.ErrPatientNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, p.ID, 2), domain.ErrPatientNotFound)

	got, err := repo.FindByID(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
}

func TestPatientRepository_ListWithLastReading(t *testing.T) {
	repo := NewPatientRepository(newTestDB(t))
	ctx := context.Background()

	bob := &domain.Patient{ClinicID: 1, Name: "Bob", Age: 50, MedicalCondition: "CHF"}
	ann := &domain.Patient{ClinicID: 1, Name: "Ann", Age: 60, MedicalCondition: "CKD", Notes: "fasting"}
	other := &domain.Patient{ClinicID: 2, Name: "Zed", Age: 40, MedicalCondition: "none"}
	for _, p := range []*domain.Patient{bob, ann, other} {
		require.NoError(t, repo.Create(ctx, p))
	}

	require.NoError(t, repo.CreateReading(ctx, &domain.Reading{PatientID: ann.ID, Date: "2024-01-01", Time: "08:00", Systolic: 120, Diastolic: 80}))
	require.NoError(t, repo.CreateReading(ctx, &domain.Reading{PatientID: ann.ID, Date: "2024-01-02", Time: "07:30", Systolic: 140, Diastolic: 90}))
	require.NoError(t, repo.CreateReading(ctx, &domain.Reading{PatientID: ann.ID, Date: "2024-01-01", Time: "21:00", Systolic: 130, Diastolic: 85}))

	patients, err := repo.ListByClinic(ctx, 1)
	require.NoError(t, err)
	require.Len(t, patients, 2)

	assert.Equal(t, "Ann", patients[0].Name)
	assert.Equal(t, "fasting", patients[0].Notes)
	require.NotNil(t, patients[0].LastSystolic)
	assert.Equal(t, 140, *patients[0].LastSystolic)
	assert.Equal(t, 90, *patients[0].LastDiastolic)

	assert.Equal(t, "Bob", patients[1].Name)
	assert.Nil(t, patients[1].LastSystolic)

	readings, err := repo.ListReadings(ctx, ann.ID)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, "2024-01-02", readings[0].Date)
	assert.Equal(t, "21:00", readings[1].Time)
}

func TestPatientRepository_DeleteRemovesReadings(t *testing.T) {
	db := newTestDB(t)
	repo := NewPatientRepository(db)
	ctx := context.Background()

	p := &domain.Patient{ClinicID: 1, Name: "Ann", Age: 60, MedicalCondition: "CKD"}
	require.NoError(t, repo.Create(ctx, p))
	require.NoError(t, repo.CreateReading(ctx, &domain.Reading{PatientID: p.ID, Date: "2024-01-01", Time: "08:00", Systolic: 120, Diastolic: 80}))

	require.NoError(t, repo.Delete(ctx, p.ID, 1))

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings WHERE patient_id = ?`, p.ID).Scan(&n))
	assert.Zero(t, n)

	_, err := repo.FindByID(ctx, p.ID, 1)
	assert.ErrorIs(t, err, domain.ErrPatientNotFound)
}

func TestPatientRepository_ClosedDatabaseIsUnavailable(t *testing.T) {
	db := newTestDB(t)
	repo := NewPatientRepository(db)
	require.NoError(t, db.Close())
	ctx := context.Background()

	_, err := repo.ListByClinic(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	_, err = repo.FindByID(ctx, 1, 1)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, repo.Create(ctx, &domain.Patient{ClinicID: 1, Name: "Ann", Age: 70}), domain.ErrStoreUnavailable)
	assert.ErrorIs(t, repo.Delete(ctx, 1, 1), domain.ErrStoreUnavailable)
	_, err = repo.ListReadings(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	// A miss is still a miss, not an outage.
	open := NewPatientRepository(newTestDB(t))
	_, err = open.FindByID(ctx, 99, 1)
	assert.ErrorIs(t, err, domain.ErrPatientNotFound)
	assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)
}
