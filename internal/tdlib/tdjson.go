//go:build tdjson

package tdlib

/*
#cgo LDFLAGS: -ltdjson
#include <stdlib.h>
#include <string.h>
#include <td/telegram/td_json_client.h>

extern void telegaLogMessage(int, char *);

static void telega_log_message(int verbosity_level, const char *message) {
	telegaLogMessage(verbosity_level, (char *)message);
}

static void telega_set_log_callback(void) {
	td_set_log_message_callback(0, telega_log_message);
}
*/
import "C"

import (
	"fmt"
	"sync"
	"time"
	"unsafe"
)

type jsonClient struct {
	mu     sync.RWMutex
	handle unsafe.Pointer
}

// Open configures TDLib logging and creates a client instance.
func Open(opts Options) (Client, error) {
	opts.defaults()

	setFatalHandler(opts.OnFatal)
	C.telega_set_log_callback()

	if err := executeChecked(verbosityRequest(opts.Verbosity)); err != nil {
		return nil, fmt.Errorf("tdlib: setting verbosity: %w", err)
	}
	if opts.LogFile != "" {
		if err := executeChecked(logFileRequest(opts.LogFile, opts.LogMaxSize)); err != nil {
			return nil, fmt.Errorf("tdlib: setting log file %s: %w", opts.LogFile, err)
		}
	}

	handle := C.td_json_client_create()
	if handle == nil {
		return nil, fmt.Errorf("tdlib: td_json_client_create failed")
	}
	return &jsonClient{handle: handle}, nil
}

func (c *jsonClient) Send(request []byte) error {
	if len(request) == 0 || request[len(request)-1] != 0 {
		return ErrNotTerminated
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.handle == nil {
		return ErrClosed
	}
	C.td_json_client_send(c.handle, (*C.char)(unsafe.Pointer(&request[0])))
	return nil
}

func (c *jsonClient) Receive(timeout time.Duration) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.handle == nil {
		return nil, ErrClosed
	}
	res := C.td_json_client_receive(c.handle, C.double(timeout.Seconds()))
	return cBytes(res), nil
}

func (c *jsonClient) Execute(request []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.handle == nil {
		return nil, ErrClosed
	}
	return execute(request)
}

func (c *jsonClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle == nil {
		return ErrClosed
	}
	C.td_json_client_destroy(c.handle)
	c.handle = nil
	return nil
}

// execute runs a static request. The result is copied out of TDLib's
// thread-local storage.
func execute(request []byte) ([]byte, error) {
	if len(request) == 0 || request[len(request)-1] != 0 {
		return nil, ErrNotTerminated
	}
	res := C.td_execute((*C.char)(unsafe.Pointer(&request[0])))
	if res == nil {
		return nil, fmt.Errorf("tdlib: td_execute returned no result")
	}
	return C.GoBytes(unsafe.Pointer(res), C.int(C.strlen(res))), nil
}

func executeChecked(request []byte) error {
	res, err := execute(request)
	if err != nil {
		return err
	}
	return resultError(res)
}

// cBytes aliases a NUL-terminated C string without copying.
func cBytes(s *C.char) []byte {
	if s == nil {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(s)), int(C.strlen(s)))
}
