package domain

import "errors"

var (
	ErrValidation     = errors.New("validation error")
	ErrIntegrity      = errors.New("integrity error")
	ErrNotFound       = errors.New("not found")
	ErrIO             = errors.New("i/o error")
	ErrCorruptPayload = errors.New("corrupt payload")
)

type ErrorKind string

const (
	KindNone       ErrorKind = ""
	KindValidation ErrorKind = "validation"
	KindIntegrity  ErrorKind = "integrity"
	KindNotFound   ErrorKind = "not_found"
	KindIO         ErrorKind = "io"
	KindCorrupt    ErrorKind = "corrupt_payload"
	KindOther      ErrorKind = "other"
)

func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrIntegrity):
		return KindIntegrity
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrCorruptPayload):
		return KindCorrupt
	case errors.Is(err, ErrIO):
		return KindIO
	}
	return KindOther
}
