package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrorKind ordnet einen Fehler der Taxonomie des Batch-Reports zu.
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation_rejection"
	KindResolutionConflict ErrorKind = "resolution_conflict"
	KindLoadConstraint     ErrorKind = "load_constraint_violation"
	KindSystemic           ErrorKind = "systemic_failure"
)

// Stage benennt den Pipeline-Schritt, in dem ein Fehler entstand.
type Stage string

const (
	StageSource   Stage = "source"
	StageValidate Stage = "validate"
	StageResolve  Stage = "resolve"
	StageLoad     Stage = "load"
	StageReport   Stage = "report"
)

// RecordError ist ein Fehler, der nur einen einzelnen Datensatz betrifft.
// Der Batch läuft danach weiter.
type RecordError struct {
	Kind   ErrorKind
	Stage  Stage
	Field  string
	Reason string
	Err    error
}

func (e *RecordError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RecordError) Unwrap() error { return e.Err }

// SystemicError bricht den gesamten Batch ab.
type SystemicError struct {
	Stage Stage
	Err   error
}

func (e *SystemicError) Error() string {
	return fmt.Sprintf("%s during %s: %v", KindSystemic, e.Stage, e.Err)
}

func (e *SystemicError) Unwrap() error { return e.Err }

func rejectField(field, reason string) *RecordError {
	return &RecordError{Kind: KindValidation, Stage: StageValidate, Field: field, Reason: reason}
}

// IsSystemic meldet, ob err den Batch abbrechen muss.
func IsSystemic(err error) bool {
	var se *SystemicError
	return errors.As(err, &se)
}

// IsConstraintViolation erkennt, ob die Datenbank den Schreibvorgang wegen einer
// Integritätsregel (FK, Unique, Check) oder ungültiger Daten in der Zeile abgelehnt hat.
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 22: Datenfehler (zu lang, NUL-Byte, ...), 23: Integritätsregel,
		// 54000: Indexzeile zu groß. Alle betreffen nur die abgelehnte Zeile.
		return strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23") || pgErr.Code == "54000"
	}
	return false
}

// classifyStoreError übersetzt einen Datenbankfehler. Integritätsverletzungen betreffen nur
// den Datensatz, alles andere (Timeout, Verbindung, Auth, Schema, Unbekanntes) ist systemisch.
func classifyStoreError(stage Stage, row string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &SystemicError{Stage: stage, Err: err}
	}
	if IsConstraintViolation(err) {
		return &RecordError{
			Kind:   KindLoadConstraint,
			Stage:  stage,
			Field:  row,
			Reason: "store rejected row",
			Err:    err,
		}
	}
	return &SystemicError{Stage: stage, Err: err}
}
