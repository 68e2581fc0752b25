package store

import "errors"

var (
	// ErrNotExist reports that the backing document has never been written.
	ErrNotExist = errors.New("config document does not exist")

	// ErrReadOnly reports a Store call on a backend that cannot write.
	ErrReadOnly = errors.New("repository is read-only")
)

// Repository is a single persisted configuration document. Refresh re-reads
// the backing bytes, GetRawData returns the bytes from the last successful
// refresh or store, and Store replaces the document wholesale. Backends that
// cannot write return ErrReadOnly from Store.
type Repository interface {
	GetName() string
	Refresh() error
	GetRawData() []byte
	Store(data []byte) error
}
