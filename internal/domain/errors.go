package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
)

// ErrorKind classifies domain failures so the HTTP layer can pick a status code.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not_found"
	KindUnavailable    ErrorKind = "unavailable"
	KindAuthentication ErrorKind = "authentication"
	KindConflict       ErrorKind = "conflict"
)

// Error is a user-facing failure with a stable kind and a human-readable message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches another *Error by kind and message so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

func Validation(msg string) error     { return &Error{Kind: KindValidation, Message: msg} }
func NotFound(msg string) error       { return &Error{Kind: KindNotFound, Message: msg} }
func Unavailable(msg string) error    { return &Error{Kind: KindUnavailable, Message: msg} }
func Authentication(msg string) error { return &Error{Kind: KindAuthentication, Message: msg} }

// KindOf reports the kind of a domain error, or "" for anything else.
// ErrNotFound is reported as KindNotFound.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	if errors.Is(err, ErrAlreadyExists) {
		return KindConflict
	}
	return ""
}

var (
	ErrStoreRequired   = &Error{Kind: KindValidation, Message: "storeId atau businessId wajib diisi"}
	ErrProductRequired = &Error{Kind: KindValidation, Message: "productId wajib diisi"}
	ErrInvalidQuantity = &Error{Kind: KindValidation, Message: "qty harus lebih dari 0"}
	ErrCartEmpty       = &Error{Kind: KindValidation, Message: "Cart kosong"}

	ErrStoreNotFound    = &Error{Kind: KindNotFound, Message: "Toko tidak ditemukan"}
	ErrCartNotFound     = &Error{Kind: KindNotFound, Message: "Cart tidak ditemukan"}
	ErrCartItemNotFound = &Error{Kind: KindNotFound, Message: "Item cart tidak ditemukan"}
	ErrOrderNotFound    = &Error{Kind: KindNotFound, Message: "Order tidak ditemukan"}
	ErrShippingNotFound = &Error{Kind: KindNotFound, Message: "Ongkos kirim tidak ditemukan"}

	ErrProductUnavailable       = &Error{Kind: KindUnavailable, Message: "Produk tidak tersedia"}
	ErrItemUnavailable          = &Error{Kind: KindUnavailable, Message: "Item tidak tersedia"}
	ErrVariantUnavailable       = &Error{Kind: KindUnavailable, Message: "Varian tidak tersedia"}
	ErrInsufficientVariantStock = &Error{Kind: KindUnavailable, Message: "Stok varian tidak mencukupi"}
	ErrInsufficientProductStock = &Error{Kind: KindUnavailable, Message: "Stok produk tidak mencukupi"}
	ErrShippingRateUnavailable  = &Error{Kind: KindUnavailable, Message: "Ongkos kirim tidak berlaku untuk toko ini"}

	ErrMissingServerKey = &Error{Kind: KindAuthentication, Message: "Missing payment server key"}
	ErrInvalidSignature = &Error{Kind: KindAuthentication, Message: "Invalid signature"}
)
