package tdlib

import (
	"encoding/json"
	"fmt"
)

type setLogVerbosityLevel struct {
	Type  string `json:"@type"`
	Level int    `json:"new_verbosity_level"`
}

type logStreamFile struct {
	Type           string `json:"@type"`
	Path           string `json:"path"`
	MaxFileSize    int64  `json:"max_file_size"`
	RedirectStderr bool   `json:"redirect_stderr"`
}

type setLogStream struct {
	Type   string        `json:"@type"`
	Stream logStreamFile `json:"log_stream"`
}

// verbosityRequest builds a setLogVerbosityLevel request.
func verbosityRequest(level int) []byte {
	return marshalRequest(setLogVerbosityLevel{
		Type:  "setLogVerbosityLevel",
		Level: level,
	})
}

// logFileRequest builds a setLogStream request pointing TDLib's log at path.
func logFileRequest(path string, maxSize int64) []byte {
	return marshalRequest(setLogStream{
		Type: "setLogStream",
		Stream: logStreamFile{
			Type:        "logStreamFile",
			Path:        path,
			MaxFileSize: maxSize,
		},
	})
}

// marshalRequest encodes v as a NUL-terminated request. The request types
// above cannot fail to encode.
func marshalRequest(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("tdlib: encoding %T: %v", v, err))
	}
	return append(b, 0)
}

// resultError extracts the error from a synchronous TDLib result, or
// returns nil if the result is not of type "error".
func resultError(result []byte) error {
	var r struct {
		Type    string `json:"@type"`
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(result, &r); err != nil {
		return fmt.Errorf("tdlib: decoding result: %w", err)
	}
	if r.Type != "error" {
		return nil
	}
	return &Error{Code: r.Code, Message: r.Message}
}

// Error is an error object returned by TDLib.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("tdlib: error %d: %s", e.Code, e.Message)
}
