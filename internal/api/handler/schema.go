package handler

import "github.com/clinicrpm/rpm-portal/internal/core/domain"

// --- Request / Response types ---

type loginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

type sessionUser struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	ClinicName string `json:"clinicName"`
}

type checkSessionResponse struct {
	Valid   bool         `json:"valid"`
	User    *sessionUser `json:"user,omitempty"`
	Message string       `json:"message,omitempty"`
}

type accountRequest struct {
	ClinicName string `form:"clinicName" json:"clinicName" validate:"required"`
	Username   string `form:"username"   json:"username"   validate:"required"`
	Password   string `form:"password"   json:"password"`
	Role       string `form:"role"       json:"role"       validate:"omitempty,oneof=clinic admin"`
}

type patientRequest struct {
	Name             string `json:"name"              validate:"required"`
	Age              int    `json:"age"               validate:"required,gte=1,lte=120"`
	MedicalCondition string `json:"medical_condition" validate:"required"`
	Notes            string `json:"notes"`
}

type readingRequest struct {
	PatientID int64  `json:"patient_id" validate:"required,gt=0"`
	Date      string `json:"date"       validate:"required,datetime=2006-01-02"`
	Time      string `json:"time"       validate:"required,datetime=15:04"`
	Systolic  int    `json:"systolic"   validate:"required,gt=0"`
	Diastolic int    `json:"diastolic"  validate:"required,gt=0"`
	Notes     string `json:"notes"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type patientsResponse struct {
	Success  bool              `json:"success"`
	Patients []*domain.Patient `json:"patients"`
}

type patientResponse struct {
	Success bool            `json:"success"`
	Patient *domain.Patient `json:"patient"`
}

type readingResponse struct {
	Success bool            `json:"success"`
	Reading *domain.Reading `json:"reading"`
}

// --- Page models ---

type loginPage struct {
	Error          string
	Registered     bool
	LoggedOut      bool
	SessionExpired bool
	Username       string
}

type dashboardPage struct {
	User     *domain.Identity
	Patients []*domain.Patient
}

type accountManagerPage struct {
	User     *domain.Identity
	Accounts []*domain.Account
	Success  string
	Error    string
}

// ErrorPage is the model of the "error" template.
type ErrorPage struct {
	Status  int
	Message string
	Detail  string
}
