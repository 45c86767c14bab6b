// repositories/errors.go
package repositories

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound means no document matched the given id.
	ErrNotFound = errors.New("document not found")

	// ErrStaleDocument means the document exists but its status or version no
	// longer matches what the caller read. The losing side of a concurrent
	// update sees this, never a silent overwrite.
	ErrStaleDocument = errors.New("document state changed concurrently")

	// ErrDuplicateKey surfaces a unique-index conflict (reference code, open
	// request per period, pending reset per user).
	ErrDuplicateKey = errors.New("duplicate key")
)

func translateWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}
