package server

import (
	"bytes"
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// codec frames messages for one client. Browsers use JSON text frames; clients
// that connect with ?codec=msgpack get binary MessagePack frames carrying the
// same field names.
type codec interface {
	Name() string
	FrameType() int
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	DecodeMessage(data []byte) (ClientMessage, error)
}

func codecFor(name string) codec {
	if name == "msgpack" {
		return msgpackCodec{}
	}
	return jsonCodec{}
}

type jsonCodec struct{}

func (jsonCodec) Name() string   { return "json" }
func (jsonCodec) FrameType() int { return websocket.TextMessage }

func (jsonCodec) Encode(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Decode(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) DecodeMessage(data []byte) (ClientMessage, error) {
	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, err
	}
	return ClientMessage{Type: msg.Type, Data: msg.Data}, nil
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string   { return "msgpack" }
func (msgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (msgpackCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) Decode(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

func (msgpackCodec) DecodeMessage(data []byte) (ClientMessage, error) {
	var msg struct {
		Type string             `msgpack:"type"`
		Data msgpack.RawMessage `msgpack:"data"`
	}
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, err
	}
	return ClientMessage{Type: msg.Type, Data: msg.Data}, nil
}
