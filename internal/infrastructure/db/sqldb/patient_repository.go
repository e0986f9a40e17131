package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/clinicrpm/rpm-portal/internal/core/domain"
)

const patientColumns = `id, clinic_id, name, age, medical_condition, notes, created_at`

// PatientRepository implements ports.PatientRepository.
type PatientRepository struct {
	db  *DB
	now func() time.Time
}

func NewPatientRepository(db *DB) *PatientRepository {
	return &PatientRepository{db: db, now: time.Now}
}

// ListByClinic returns the clinic's patients ordered by name, each with the
// systolic/diastolic values of its most recent reading.
func (r *PatientRepository) ListByClinic(ctx context.Context, clinicID int64) ([]*domain.Patient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.clinic_id, p.name, p.age, p.medical_condition, p.notes, p.created_at,
			(SELECT rd.systolic FROM readings rd WHERE rd.patient_id = p.id
				ORDER BY rd.date DESC, rd.time DESC, rd.id DESC LIMIT 1) AS last_systolic,
			(SELECT rd.diastolic FROM readings rd WHERE rd.patient_id = p.id
				ORDER BY rd.date DESC, rd.time DESC, rd.id DESC LIMIT 1) AS last_diastolic
		FROM patients p
		WHERE p.clinic_id = ?
		ORDER BY p.name ASC, p.id ASC`, clinicID)
	if err != nil {
		return nil, storeErr("list patients", err)
	}
	defer rows.Close()

	patients := []*domain.Patient{}
	for rows.Next() {
		var (
			p         domain.Patient
			notes     sql.NullString
			createdAt int64
			sys, dia  sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.ClinicID, &p.Name, &p.Age, &p.MedicalCondition, &notes, &createdAt, &sys, &dia); err != nil {
			return nil, storeErr("scan patient", err)
		}
		p.Notes = notes.String
		p.CreatedAt = time.Unix(createdAt, 0).UTC()
		if sys.Valid {
			v := int(sys.Int64)
			p.LastSystolic = &v
		}
		if dia.Valid {
			v := int(dia.Int64)
			p.LastDiastolic = &v
		}
		patients = append(patients, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list patients", err)
	}
	return patients, nil
}

func (r *PatientRepository) FindByID(ctx context.Context, id, clinicID int64) (*domain.Patient, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE id = ? AND clinic_id = ?`, id, clinicID)
	return scanPatient(row)
}

func (r *PatientRepository) Create(ctx context.Context, p *domain.Patient) error {
	p.CreatedAt = r.now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO patients (clinic_id, name, age, medical_condition, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ClinicID, p.Name, p.Age, p.MedicalCondition, nullString(p.Notes), p.CreatedAt.Unix())
	if err != nil {
		return storeErr("insert patient", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storeErr("insert patient: last insert id", err)
	}
	p.ID = id
	return nil
}

func (r *PatientRepository) Update(ctx context.Context, p *domain.Patient) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE patients SET name = ?, age = ?, medical_condition = ?, notes = ?
		WHERE id = ? AND clinic_id = ?`,
		p.Name, p.Age, p.MedicalCondition, nullString(p.Notes), p.ID, p.ClinicID)
	if err != nil {
		return storeErr("update patient", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("update patient", err)
	}
	if n == 0 {
		return domain.ErrPatientNotFound
	}
	return nil
}

// Delete removes the patient's readings and then the patient in one transaction.
// Ownership is checked first so another clinic's readings are never touched.
func (r *PatientRepository) Delete(ctx context.Context, id, clinicID int64) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		var found int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM patients WHERE id = ? AND clinic_id = ?`+r.db.lockClause(), id, clinicID).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrPatientNotFound
		}
		if err != nil {
			return storeErr("delete patient", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM readings WHERE patient_id = ?`, id); err != nil {
			return storeErr("delete patient readings", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM patients WHERE id = ? AND clinic_id = ?`, id, clinicID); err != nil {
			return storeErr("delete patient", err)
		}
		return nil
	})
}

// ListReadings returns the patient's readings newest first.
func (r *PatientRepository) ListReadings(ctx context.Context, patientID int64) ([]domain.Reading, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, date, time, systolic, diastolic, notes, created_at
		FROM readings WHERE patient_id = ?
		ORDER BY date DESC, time DESC, id DESC`, patientID)
	if err != nil {
		return nil, storeErr("list readings", err)
	}
	defer rows.Close()

	readings := []domain.Reading{}
	for rows.Next() {
		var (
			rd        domain.Reading
			notes     sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&rd.ID, &rd.PatientID, &rd.Date, &rd.Time, &rd.Systolic, &rd.Diastolic, &notes, &createdAt); err != nil {
			return nil, storeErr("scan reading", err)
		}
		rd.Notes = notes.String
		rd.CreatedAt = time.Unix(createdAt, 0).UTC()
		readings = append(readings, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list readings", err)
	}
	return readings, nil
}

func (r *PatientRepository) CreateReading(ctx context.Context, rd *domain.Reading) error {
	rd.CreatedAt = r.now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO readings (patient_id, date, time, systolic, diastolic, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rd.PatientID, rd.Date, rd.Time, rd.Systolic, rd.Diastolic, nullString(rd.Notes), rd.CreatedAt.Unix())
	if err != nil {
		return storeErr("insert reading", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storeErr("insert reading: last insert id", err)
	}
	rd.ID = id
	return nil
}

func scanPatient(row scanner) (*domain.Patient, error) {
	var (
		p         domain.Patient
		notes     sql.NullString
		createdAt int64
	)
	if err := row.Scan(&p.ID, &p.ClinicID, &p.Name, &p.Age, &p.MedicalCondition, &notes, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPatientNotFound
		}
		return nil, storeErr("scan patient", err)
	}
	p.Notes = notes.String
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}
