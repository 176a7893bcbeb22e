package overlay

import "errors"

var (
	// ErrNilStore indicates construction without an underlying store.
	ErrNilStore = errors.New("overlay: store is required")
	// ErrNilProvider indicates Open was called without a provider.
	ErrNilProvider = errors.New("overlay: provider is required")
	// ErrNilUpdater indicates Update was called without an updater.
	ErrNilUpdater = errors.New("overlay: updater is required")
)
