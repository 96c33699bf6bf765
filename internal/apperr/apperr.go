package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies an error for transport and presentation.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindPermission Kind = "permission"
	KindConflict   Kind = "conflict"
	KindUpstream   Kind = "upstream"
	KindTimeout    Kind = "timeout"
	KindInternal   Kind = "internal"
)

// DefaultLang is used when the caller does not ask for a supported language.
const DefaultLang = "id"

// Error is a classified application error carrying localized messages.
type Error struct {
	Kind    Kind
	Code    string
	Message map[string]string
	Err     error
}

// New builds an error with English and Indonesian messages.
func New(kind Kind, code, en, id string) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: map[string]string{"en": en, "id": id},
	}
}

func Validation(code, en, id string) *Error { return New(KindValidation, code, en, id) }
func NotFound(code, en, id string) *Error { return New(KindNotFound, code, en, id) }
func Conflict(code, en, id string) *Error { return New(KindConflict, code, en, id) }
func Permission(code, en, id string) *Error { return New(KindPermission, code, en, id) }

// Upstream wraps a failure of a third-party API.
func Upstream(code string, err error) *Error {
	e := New(KindUpstream, code, "external service is unavailable", "layanan eksternal tidak tersedia")
	e.Err = err
	return e
}

// Timeout wraps an operation that ran past its deadline.
func Timeout(code string, err error) *Error {
	e := New(KindTimeout, code, "the operation timed out", "waktu operasi habis")
	e.Err = err
	return e
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	e := New(KindInternal, "internal_error", "something went wrong, please try again", "terjadi kesalahan, silakan coba lagi")
	e.Err = err
	return e
}

// Wrap returns a copy of e with err attached as the cause.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// WithMessage returns a copy of e with replaced messages.
func (e *Error) WithMessage(en, id string) *Error {
	cp := *e
	cp.Message = map[string]string{"en": en, "id": id}
	return &cp
}

func (e *Error) Error() string {
	msg := e.Message["en"]
	if msg == "" {
		msg = e.Code
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors of the same code, so sentinels survive Wrap and WithMessage.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Localized picks the message for the given Accept-Language value.
func (e *Error) Localized(acceptLanguage string) string {
	lang := pickLang(acceptLanguage)
	if msg, ok := e.Message[lang]; ok && msg != "" {
		return msg
	}
	if msg, ok := e.Message[DefaultLang]; ok && msg != "" {
		return msg
	}
	return e.Message["en"]
}

// Classifier is implemented by domain errors that can describe themselves.
type Classifier interface {
	AppError() *Error
}

// From extracts an *Error from err, converting classifiers and falling back to Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var c Classifier
	if errors.As(err, &c) {
		return c.AppError()
	}
	return Internal(err)
}

// KindOf reports the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return From(err).Kind
}

// HTTPStatus maps a kind onto a response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPermission:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func pickLang(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		switch {
		case strings.HasPrefix(tag, "en"):
			return "en"
		case strings.HasPrefix(tag, "id"), strings.HasPrefix(tag, "in"):
			return "id"
		}
	}
	return DefaultLang
}
