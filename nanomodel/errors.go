package nanomodel

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrAbstractModel is returned when constructing an instance of an
	// abstract model type.
	ErrAbstractModel = errors.New("abstract model can not be instantiated")

	// ErrUnknownField is returned when an attribute outside the declared
	// schema is assigned or passed to the constructor.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownFields is returned when a document with keys outside the
	// declared schema is loaded strictly (by attribute name).
	ErrUnknownFields = errors.New("unknown fields in document")

	// ErrRequiredField is returned by field descriptors when a required
	// value is absent.
	ErrRequiredField = errors.New("required field is missing")

	// ErrInvalidKey is returned by Update when the model key still carries
	// the placeholder id.
	ErrInvalidKey = errors.New("invalid key")

	// ErrMissingKey is returned by Refresh when the model has no usable key.
	ErrMissingKey = errors.New("model has no key")

	// ErrMissingID is returned when a document path is requested before the
	// identifier is known.
	ErrMissingID = errors.New("model has no id")

	// ErrNoManager is returned by lifecycle operations on a model type that
	// has no persistence manager attached.
	ErrNoManager = errors.New("model has no manager")

	// ErrInvalidValue is returned by field descriptors for values of the
	// wrong type.
	ErrInvalidValue = errors.New("invalid value")
)

// SerializingError records which model and attribute failed to serialize
// and why. Path holds the attribute names from the outermost model down to
// the failing field.
type SerializingError struct {
	Model *Model
	Path  []string
	Err   error
}

func (e *SerializingError) Error() string {
	name := "<nil>"
	if e.Model != nil {
		name = e.Model.meta.name
	}
	return fmt.Sprintf("serializing %s field %q: %v", name, strings.Join(e.Path, "."), e.Err)
}

func (e *SerializingError) Unwrap() error { return e.Err }

// wrapSerializing attaches the model and attribute to err. A nested
// SerializingError is folded in so the path reads from the outermost model
// down and the cause stays the original descriptor error.
func wrapSerializing(m *Model, field string, err error) error {
	var inner *SerializingError
	if errors.As(err, &inner) {
		path := append([]string{field}, inner.Path...)
		return &SerializingError{Model: m, Path: path, Err: inner.Err}
	}
	return &SerializingError{Model: m, Path: []string{field}, Err: err}
}

// UnknownFieldsError lists the document keys that are not part of the
// declared schema.
type UnknownFieldsError struct {
	Model  string
	Fields []string
}

func newUnknownFieldsError(model string, names []string) *UnknownFieldsError {
	fields := append([]string(nil), names...)
	sort.Strings(fields)
	return &UnknownFieldsError{Model: model, Fields: fields}
}

func (e *UnknownFieldsError) Error() string {
	return fmt.Sprintf("can't populate %s from dict with unknown fields: %s", e.Model, strings.Join(e.Fields, ", "))
}

func (e *UnknownFieldsError) Unwrap() error { return ErrUnknownFields }

// RequiredFieldError names the required field that was absent.
type RequiredFieldError struct {
	Field string
}

func (e *RequiredFieldError) Error() string {
	return fmt.Sprintf("field %q is required", e.Field)
}

func (e *RequiredFieldError) Unwrap() error { return ErrRequiredField }
