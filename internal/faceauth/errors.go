package faceauth

import "errors"

// Kind tags every failure mode of the enrollment and verification paths.
// Handlers map kinds to structured {success: false, message, errorKind}
// responses; no kind ever escapes as a panic.
type Kind string

const (
	KindValidation            Kind = "validation"
	KindNoFace                Kind = "no_face"
	KindMultipleFaces         Kind = "multiple_faces"
	KindLowQualityFace        Kind = "low_quality_face"
	KindDuplicateIdentity     Kind = "duplicate_identity"
	KindFaceAlreadyRegistered Kind = "face_already_registered"
	KindNoRegisteredUsers     Kind = "no_registered_users"
	KindStore                 Kind = "store_error"
	KindExtractor             Kind = "extractor_error"
)

// Error is the discriminated failure result of an Enroll or Verify call.
type Error struct {
	Kind    Kind
	Message string
	// ConflictingIdentity names the existing account when a new face matches
	// an already-enrolled one (face_already_registered only).
	ConflictingIdentity string
	Err                 error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// newError builds an *Error with no wrapped cause.
func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf extracts the error kind, or an empty Kind for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports whether the caller may retry the same operation.
// Quality rejections want a better frame; store/extractor failures are
// transient I/O.
func Retryable(kind Kind) bool {
	switch kind {
	case KindLowQualityFace, KindStore, KindExtractor:
		return true
	}
	return false
}
