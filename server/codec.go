package server

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"
)

// The service messages are plain structs, so the default protobuf codecs
// cannot carry them. These replace connect's "json" codec and add "cbor".

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type cborCodec struct {
	enc cbor.EncMode
}

func newCBORCodec() cborCodec {
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic("server: cbor enc mode: " + err.Error())
	}
	return cborCodec{enc: enc}
}

func (cborCodec) Name() string { return "cbor" }

func (c cborCodec) Marshal(v any) ([]byte, error) { return c.enc.Marshal(v) }

func (cborCodec) Unmarshal(data []byte, v any) error { return cbor.Unmarshal(data, v) }
