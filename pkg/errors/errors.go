package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Checkout codes.
const (
	CodeNotFoundCartItem          Code = "NOT_FOUND_CART_ITEM"
	CodeOutOfStock                Code = "OUT_OF_STOCK"
	CodeProductUnavailable        Code = "PRODUCT_UNAVAILABLE"
	CodeSKUNotBelongToShop        Code = "SKU_NOT_BELONG_TO_SHOP"
	CodeDiscountCodeInvalid       Code = "DISCOUNT_CODE_INVALID"
	CodeShippingMethodUnavailable Code = "SHIPPING_METHOD_UNAVAILABLE"
	CodePaymentMethodUnavailable  Code = "PAYMENT_METHOD_UNAVAILABLE"
)

// Order lifecycle codes.
const (
	CodeOrderNotFound          Code = "ORDER_NOT_FOUND"
	CodeCannotCancelOrder      Code = "CANNOT_CANCEL_ORDER"
	CodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"
)

// Payment webhook codes. All of them are final: a gateway retry will not change the outcome.
const (
	CodeDuplicateTransaction  Code = "DUPLICATE_TRANSACTION"
	CodeMalformedReference    Code = "MALFORMED_REFERENCE"
	CodePaymentNotFound       Code = "PAYMENT_NOT_FOUND"
	CodeAmountMismatch        Code = "AMOUNT_MISMATCH"
	CodePaymentAlreadySettled Code = "PAYMENT_ALREADY_SETTLED"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "authentication required",
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "access denied",
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
	},
	CodeConflict: {
		HTTPStatus:    http.StatusConflict,
		PublicMessage: "conflict detected",
	},
	CodeStateConflict: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "state transition disallowed",
		DetailsAllowed: true,
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "idempotency key reused with a different request",
		DetailsAllowed: true,
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},

	CodeNotFoundCartItem: {
		HTTPStatus:     http.StatusNotFound,
		PublicMessage:  "cart item not found",
		DetailsAllowed: true,
	},
	CodeOutOfStock: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "sku is out of stock",
		DetailsAllowed: true,
	},
	CodeProductUnavailable: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "product is not available",
		DetailsAllowed: true,
	},
	CodeSKUNotBelongToShop: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "sku does not belong to shop",
		DetailsAllowed: true,
	},
	CodeDiscountCodeInvalid: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "discount code cannot be applied",
		DetailsAllowed: true,
	},
	CodeShippingMethodUnavailable: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "shipping method is not available",
		DetailsAllowed: true,
	},
	CodePaymentMethodUnavailable: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "payment method is not available",
		DetailsAllowed: true,
	},

	CodeOrderNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "order not found",
	},
	CodeCannotCancelOrder: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "order can only be cancelled while pending payment",
		DetailsAllowed: true,
	},
	CodeInvalidStateTransition: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "order status transition not allowed",
		DetailsAllowed: true,
	},

	CodeDuplicateTransaction: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "transaction already processed",
		DetailsAllowed: true,
	},
	CodeMalformedReference: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "cannot get payment id from transfer content",
		DetailsAllowed: true,
	},
	CodePaymentNotFound: {
		HTTPStatus:     http.StatusNotFound,
		PublicMessage:  "payment not found",
		DetailsAllowed: true,
	},
	CodeAmountMismatch: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "transfer amount does not match payment total",
		DetailsAllowed: true,
	},
	CodePaymentAlreadySettled: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "payment is no longer pending",
		DetailsAllowed: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

// Retryable reports whether the caller may succeed by repeating the request.
func (e *Error) Retryable() bool {
	return MetadataFor(e.Code()).Retryable
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code carried by err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.Code()
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
