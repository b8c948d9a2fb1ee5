//go:build tdjson

package tdlib

import "C"

// telegaLogMessage receives TDLib log messages. Level 0 messages are fatal:
// TDLib aborts the process once the callback returns.
//
//export telegaLogMessage
func telegaLogMessage(level C.int, message *C.char) {
	if level != 0 {
		return
	}
	dispatchFatal(C.GoString(message))
}
