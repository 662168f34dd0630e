package shell

import "errors"

var (
	// ErrUnknownInterface — интерфейс healthcheck отсутствует или не имеет IPv4.
	ErrUnknownInterface = errors.New("unknown network interface")
	// ErrAlreadyInitialised — повторный Init.
	ErrAlreadyInitialised = errors.New("shell already initialised")
	// ErrExited — оболочка уже завершена.
	ErrExited = errors.New("shell has exited")
	// ErrDuplicateExtension — расширение с таким именем уже подключено.
	ErrDuplicateExtension = errors.New("extension already attached")
	// ErrAttachAfterInit — подключение расширения после Init.
	ErrAttachAfterInit = errors.New("extensions must be attached before init")
	// ErrExtensionStart — расширение не стартовало.
	ErrExtensionStart = errors.New("extension failed to start")
	// ErrAppStart — приложение не стартовало.
	ErrAppStart = errors.New("application failed to start")
)
