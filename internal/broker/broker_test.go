package broker

import (
	"errors"
	"testing"
)

func TestDecodeRPCReplySuccess(t *testing.T) {
	data, err := decodeRPCReply([]byte(`{"status":"success","data":{"id":"1"}}`))
	if err != nil {
		t.Fatalf("decodeRPCReply returned error: %v", err)
	}
	if string(data) != `{"id":"1"}` {
		t.Fatalf("data = %s, want payload", data)
	}
}

func TestDecodeRPCReplyError(t *testing.T) {
	_, err := decodeRPCReply([]byte(`{"status":"error","errorMessage":"page not linked"}`))
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error = %v, want *RPCError", err)
	}
	if rpcErr.Message != "page not linked" {
		t.Fatalf("message = %q, want remote message", rpcErr.Message)
	}
}

func TestDecodeRPCReplyMalformed(t *testing.T) {
	if _, err := decodeRPCReply([]byte(`not json`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestRPCErrorDefaultMessage(t *testing.T) {
	err := &RPCError{}
	if err.Error() == "" {
		t.Fatal("empty error message")
	}
}

func TestClientUnavailable(t *testing.T) {
	var client *AMQPClient
	if err := client.SendMessage(t.Context(), "q", nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("SendMessage = %v, want ErrUnavailable", err)
	}
	if _, err := client.SendRPCMessage(t.Context(), "q", nil); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("SendRPCMessage = %v, want ErrUnavailable", err)
	}
}
