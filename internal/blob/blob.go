// Package blob stores proof-of-payment documents behind opaque keys. The
// service writes the blob first and the record second, so a failed record
// update leaves at most an orphaned blob, never a dangling reference.
package blob

import "context"

// Store is the blob persistence port.
type Store interface {
	// Put stores the bytes and returns an opaque key.
	Put(ctx context.Context, data []byte, contentType string) (string, error)
	// URL resolves a key to a short-lived readable URL.
	URL(ctx context.Context, key string) (string, error)
}
