package ports

import (
	"context"
	"net/http"

	"github.com/clinicrpm/rpm-portal/internal/core/domain"
)

// SessionManager owns the session cookie and every mutation of session records.
type SessionManager interface {
	// Resolve returns the identity bound to the request cookie, or nil when the
	// request carries no live session. A non-nil error means the store could not
	// be consulted and the caller must treat the request as unauthenticated.
	Resolve(ctx context.Context, w http.ResponseWriter, r *http.Request) (*domain.Identity, error)
	// Establish replaces any session bound to r with a freshly generated one.
	Establish(ctx context.Context, w http.ResponseWriter, r *http.Request, attrs domain.SessionAttributes) (string, error)
	// Terminate deletes the session and always clears the cookie.
	Terminate(ctx context.Context, w http.ResponseWriter, sessionID string) error
	// SessionID returns the raw cookie value, or "" when absent.
	SessionID(r *http.Request) string
}

// LoginInput carries the request metadata recorded alongside a login attempt.
type LoginInput struct {
	Username  string
	Password  string
	RemoteIP  string
	RequestID string
}

type AuthService interface {
	// Authenticate verifies credentials. Unknown usernames and wrong passwords
	// both return domain.ErrInvalidCredentials.
	Authenticate(ctx context.Context, in LoginInput) (*domain.Account, error)
	// RecordLogout writes a logout audit event for the given identity.
	RecordLogout(ctx context.Context, id *domain.Identity, remoteIP, requestID string)
}

// AccountInput is the DTO for account creation and update.
// An empty Password on update keeps the stored hash.
type AccountInput struct {
	ClinicName string
	Username   string
	Password   string
	Role       domain.Role
}

type AccountService interface {
	List(ctx context.Context) ([]*domain.Account, error)
	Get(ctx context.Context, id int64) (*domain.Account, error)
	Create(ctx context.Context, in AccountInput) (*domain.Account, error)
	Update(ctx context.Context, id int64, in AccountInput) error
	// Delete rejects deleting actorID itself and deleting the last admin.
	Delete(ctx context.Context, actorID, id int64) error
}

// PatientInput is the DTO for patient creation and update.
type PatientInput struct {
	Name             string
	Age              int
	MedicalCondition string
	Notes            string
}

// ReadingInput is the DTO for recording a blood-pressure reading.
type ReadingInput struct {
	PatientID int64
	Date      string
	Time      string
	Systolic  int
	Diastolic int
	Notes     string
}

type PatientService interface {
	List(ctx context.Context, clinicID int64) ([]*domain.Patient, error)
	// Get returns the patient with its readings, newest first.
	Get(ctx context.Context, clinicID, id int64) (*domain.Patient, error)
	Create(ctx context.Context, clinicID int64, in PatientInput) (*domain.Patient, error)
	Update(ctx context.Context, clinicID, id int64, in PatientInput) error
	Delete(ctx context.Context, clinicID, id int64) error
	// AddReading fails with domain.ErrForbidden when the patient is not the clinic's.
	AddReading(ctx context.Context, clinicID int64, in ReadingInput) (*domain.Reading, error)
}
