package domain

import "time"

// Patient is a monitored person owned by a clinic account.
type Patient struct {
	ID               int64     `json:"id"`
	ClinicID         int64     `json:"clinic_id"`
	Name             string    `json:"name"`
	Age              int       `json:"age"`
	MedicalCondition string    `json:"medical_condition"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`

	// Populated by dashboard listings only.
	LastSystolic  *int `json:"last_systolic,omitempty"`
	LastDiastolic *int `json:"last_diastolic,omitempty"`

	Readings []Reading `json:"readings,omitempty"`
}

// Reading is a single blood-pressure measurement.
type Reading struct {
	ID        int64     `json:"id"`
	PatientID int64     `json:"patient_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Time      string    `json:"time"` // HH:MM
	Systolic  int       `json:"systolic"`
	Diastolic int       `json:"diastolic"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
