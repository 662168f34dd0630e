package httppool

import "errors"

var (
	// ErrDuplicatePool — пул для origin уже существует.
	ErrDuplicatePool = errors.New("http pool already exists")
	// ErrConflictingAuth — переданы и bearer-токен, и basic-авторизация.
	ErrConflictingAuth = errors.New("bearer token and basic auth are mutually exclusive")
	// ErrInvalidOrigin — origin не разбирается как scheme://host[:port].
	ErrInvalidOrigin = errors.New("invalid origin")
	// ErrUnsupportedMethod — метод вне GET/PUT/POST/DELETE/PATCH.
	ErrUnsupportedMethod = errors.New("unsupported http method")
	// ErrDecodeBody — тело объявлено как JSON, но не разбирается.
	ErrDecodeBody = errors.New("decode response body")
	// ErrClosed — пулы уже уничтожены.
	ErrClosed = errors.New("http pools closed")
)
