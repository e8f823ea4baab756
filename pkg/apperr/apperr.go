// Package apperr defines the error taxonomy shared by gateways and orchestrators.
//
// Every remote call returns an *Error carrying a closed Kind and a stable string
// Code, so callers branch on the kind and surface the code to clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindSessionExpired
	KindValidation
	KindNotFound
	KindConflict
	KindRemoteUnavailable
	KindFailed
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindSessionExpired:
		return "session_expired"
	case KindValidation:
		return "validation_failed"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRemoteUnavailable:
		return "remote_unavailable"
	case KindFailed:
		return "failed"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Well-known codes.
const (
	CodeSessionExpired      = "SESSION_EXPIRED"
	CodeValidation          = "VALIDATION_FAILED"
	CodeRemoteUnavailable   = "REMOTE_UNAVAILABLE"
	CodeInternal            = "INTERNAL"
	CodeForbidden           = "FORBIDDEN"
	CodeDocumentNotFound    = "DOCUMENT_NOT_FOUND"
	CodeDocumentExists      = "DOCUMENT_EXISTS"
	CodeVersionConflict     = "VERSION_CONFLICT"
	CodeSignatureExists     = "SIGNATURE_EXISTS"
	CodeSignaturesMissing   = "SIGNATURES_INCOMPLETE"
	CodeInvalidDocument     = "INVALID_DOCUMENT"
	CodeContractRender      = "CONTRACT_RENDER_FAILED"
	CodeContractUpload      = "CONTRACT_UPLOAD_FAILED"
	CodeDocumentCreate      = "DOCUMENT_CREATE_FAILED"
	CodeDocumentUpdate      = "DOCUMENT_UPDATE_FAILED"
	CodeCartFetch           = "CART_FETCH_FAILED"
	CodeCartAdd             = "CART_ADD_FAILED"
	CodeCartUpdate          = "CART_UPDATE_FAILED"
	CodeCartRemove          = "CART_REMOVE_FAILED"
	CodeCartBillingAddress  = "CART_BILLING_ADDRESS_FAILED"
	CodeCartShippingAddress = "CART_SHIPPING_ADDRESS_FAILED"
	CodeShippingMethod      = "SHIPPING_METHOD_FAILED"
	CodePaymentMethod       = "PAYMENT_METHOD_FAILED"
	CodePlaceOrder          = "ORDER_PLACE_FAILED"
	CodeOrderFetch          = "ORDER_FETCH_FAILED"
	CodeCustomerFetch       = "CUSTOMER_FETCH_FAILED"
	CodeCustomerUpdate      = "CUSTOMER_UPDATE_FAILED"
	CodeAddressCreate       = "ADDRESS_CREATE_FAILED"
	CodeSignIn              = "SIGN_IN_FAILED"
	CodeSignOut             = "SIGN_OUT_FAILED"
	CodeConversation        = "CONVERSATION_FAILED"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

func SessionExpired(message string) *Error {
	return New(KindSessionExpired, CodeSessionExpired, message)
}

func Validation(message string) *Error {
	return New(KindValidation, CodeValidation, message)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func Unavailable(err error) *Error {
	return Wrap(KindRemoteUnavailable, CodeRemoteUnavailable, err)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, CodeForbidden, message)
}

func Failed(code, message string) *Error {
	return New(KindFailed, code, message)
}

// As extracts the *Error from err. Errors outside the taxonomy become internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(KindInternal, CodeInternal, err)
}

func KindOf(err error) Kind {
	if e := As(err); e != nil {
		return e.Kind
	}
	return KindInternal
}

func CodeOf(err error) string {
	if e := As(err); e != nil {
		return e.Code
	}
	return ""
}

func IsSessionExpired(err error) bool {
	return err != nil && KindOf(err) == KindSessionExpired
}

// Public returns the message safe to show to end users: the explicit message
// when present, the underlying error text as a last resort.
func Public(err error) string {
	e := As(err)
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindSessionExpired:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRemoteUnavailable:
		return http.StatusBadGateway
	case KindFailed:
		return http.StatusUnprocessableEntity
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
