package engineapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/longhorn/nvmeof-gateway/util/errno"
)

const (
	jsonRPCErrorMarker   = "Got JSON-RPC error response"
	jsonRPCResponseLabel = "response:"
)

// RPCError is an engine call that came back with an error object. Its text
// embeds the request and the error object after a fixed marker, which is
// what ParseRPCError looks for.
type RPCError struct {
	Method  string
	Params  interface{}
	Code    int32
	Message string
}

type rpcErrorResponse struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	request, err := json.Marshal(map[string]interface{}{
		"method": e.Method,
		"params": e.Params,
	})
	if err != nil {
		request = []byte(fmt.Sprintf("%q", e.Method))
	}
	response, _ := json.Marshal(rpcErrorResponse{Code: e.Code, Message: e.Message})
	return fmt.Sprintf("request:\n%s\n%s\n%s\n%s", request, jsonRPCErrorMarker, jsonRPCResponseLabel, response)
}

// ParseRPCError extracts the error object embedded in an engine failure
// text. Negative codes are returned as positive errno values.
func ParseRPCError(text string) (code int, message string, ok bool) {
	idx := strings.Index(text, jsonRPCErrorMarker)
	if idx < 0 {
		return 0, "", false
	}
	rest := text[idx+len(jsonRPCErrorMarker):]
	idx = strings.Index(rest, jsonRPCResponseLabel)
	if idx < 0 {
		return 0, "", false
	}
	rest = rest[idx+len(jsonRPCResponseLabel):]

	resp := struct {
		Code    *int   `json:"code"`
		Message string `json:"message"`
	}{}
	if err := json.NewDecoder(strings.NewReader(rest)).Decode(&resp); err != nil {
		logrus.WithError(err).Warn("Failed to parse engine error response")
		return 0, "", false
	}
	if resp.Code == nil {
		return 0, "", false
	}
	code = *resp.Code
	if code < 0 {
		code = -code
	}
	return code, resp.Message, true
}

// TranslateError turns an engine failure into a status-coded error. When the
// failure carries an error object the result is "prefix: message" with its
// code, otherwise it is "prefix:\n<text>" with defaultCode.
func TranslateError(err error, prefix string, defaultCode errno.Errno) error {
	if err == nil {
		return nil
	}
	text := err.Error()
	if code, message, ok := ParseRPCError(text); ok {
		status := errno.Errno(code)
		if status == errno.Success {
			status = defaultCode
		}
		return errno.New(status, "%s: %s", prefix, message)
	}
	return errno.New(defaultCode, "%s:\n%s", prefix, text)
}

// FalsyResultError is reported when the engine call returned no error but a
// false or empty result.
func FalsyResultError(prefix string) error {
	return errno.New(errno.EINVAL, "%s", prefix)
}
