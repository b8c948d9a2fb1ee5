//go:build !tdjson

package tdlib

// Open reports ErrUnavailable: this binary was built without libtdjson.
func Open(Options) (Client, error) {
	return nil, ErrUnavailable
}
