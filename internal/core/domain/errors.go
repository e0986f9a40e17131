package domain

import (
	"errors"
	"fmt"
)

// Authentication and authorization.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("access forbidden")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Session lifecycle.
var (
	ErrSessionNotFound          = errors.New("session not found")
	ErrInvalidSessionAttributes = errors.New("invalid session attributes")
	ErrStoreUnavailable         = errors.New("store unavailable")
	ErrSessionIntegrity         = errors.New("session could not be updated")
)

// Accounts.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("username already exists")
	ErrInvalidAccount  = errors.New("invalid account")
	ErrLastAdmin       = errors.New("cannot remove the last admin account")
	ErrSelfDelete      = errors.New("cannot delete your own account")
)

// Patients and readings.
var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrInvalidPatient  = errors.New("invalid patient")
	ErrInvalidReading  = errors.New("invalid reading")

	// ErrPatientNotAuthorized is returned when writing against another clinic's patient.
	ErrPatientNotAuthorized = fmt.Errorf("%w: patient not found or not authorized", ErrForbidden)
)
