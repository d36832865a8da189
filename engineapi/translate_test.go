package engineapi

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/longhorn/nvmeof-gateway/util/errno"
)

func TestParseRPCError(t *testing.T) {
	tests := map[string]struct {
		text        string
		wantCode    int
		wantMessage string
		wantOK      bool
	}{
		"negative code": {
			text:        "request:\n{}\nGot JSON-RPC error response\nresponse:\n{\"code\": -17, \"message\": \"File exists\"}",
			wantCode:    17,
			wantMessage: "File exists",
			wantOK:      true,
		},
		"positive code with trailing text": {
			text:        "Got JSON-RPC error response\nresponse:\n{\"code\": 19, \"message\": \"No such device\"}\ntrailer",
			wantCode:    19,
			wantMessage: "No such device",
			wantOK:      true,
		},
		"no marker": {
			text: "connection refused",
		},
		"marker without response label": {
			text: "Got JSON-RPC error response but nothing else",
		},
		"response not json": {
			text: "Got JSON-RPC error response\nresponse:\nnot json",
		},
		"response without code": {
			text: "Got JSON-RPC error response\nresponse:\n{\"message\": \"x\"}",
		},
	}
	for name, tt := range tests {
		code, message, ok := ParseRPCError(tt.text)
		assert.Equal(t, tt.wantOK, ok, name)
		assert.Equal(t, tt.wantCode, code, name)
		assert.Equal(t, tt.wantMessage, message, name)
	}
}

func TestTranslateError(t *testing.T) {
	assert.Nil(t, TranslateError(nil, "prefix", errno.EINVAL))

	rpcErr := &RPCError{Method: MethodNvmfCreateSubsystem, Params: map[string]string{"nqn": "nqn.a"}, Code: -32602, Message: "Invalid parameters"}
	err := TranslateError(rpcErr, "Failure creating subsystem nqn.a", errno.EINVAL)
	assert.Equal(t, errno.Errno(32602), errno.Code(err))
	assert.Equal(t, "Failure creating subsystem nqn.a: Invalid parameters", errno.Message(err))

	err = TranslateError(errors.Wrap(rpcErr, "wrapped"), "prefix", errno.EINVAL)
	assert.Equal(t, errno.Errno(32602), errno.Code(err))

	err = TranslateError(fmt.Errorf("broken pipe"), "Failure listing subsystems", errno.ENODEV)
	assert.Equal(t, errno.ENODEV, errno.Code(err))
	assert.Equal(t, "Failure listing subsystems:\nbroken pipe", errno.Message(err))

	err = TranslateError(&RPCError{Method: "m", Code: 0, Message: "odd"}, "prefix", errno.ENOKEY)
	assert.Equal(t, errno.ENOKEY, errno.Code(err))

	err = FalsyResultError("Failure adding host h to nqn.a")
	assert.Equal(t, errno.EINVAL, errno.Code(err))
	assert.Equal(t, "Failure adding host h to nqn.a", errno.Message(err))
}
