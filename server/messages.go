package server

import (
	"errors"

	"github.com/chazu/intcode/pkg/intcode"
)

// Request and response messages for the machine service. Each field carries
// a JSON name and a CBOR integer key so both codecs share one definition.

type CreateRequest struct {
	Program     []int64 `json:"program,omitempty" cbor:"1,keyasint,omitempty"`
	ProgramText string  `json:"programText,omitempty" cbor:"2,keyasint,omitempty"`
	Input       []int64 `json:"input,omitempty" cbor:"3,keyasint,omitempty"`
	Text        string  `json:"text,omitempty" cbor:"4,keyasint,omitempty"`
	ISA         string  `json:"isa,omitempty" cbor:"5,keyasint,omitempty"`
	Memory      string  `json:"memory,omitempty" cbor:"6,keyasint,omitempty"`
	Label       string  `json:"label,omitempty" cbor:"7,keyasint,omitempty"`
}

type CreateResponse struct {
	ID  string `json:"id" cbor:"1,keyasint"`
	ISA string `json:"isa" cbor:"2,keyasint"`
}

type FeedRequest struct {
	ID     string  `json:"id" cbor:"1,keyasint"`
	Values []int64 `json:"values,omitempty" cbor:"2,keyasint,omitempty"`
	Text   string  `json:"text,omitempty" cbor:"3,keyasint,omitempty"`
}

type FeedResponse struct {
	Pending int `json:"pending" cbor:"1,keyasint"`
}

type RunRequest struct {
	ID       string `json:"id" cbor:"1,keyasint"`
	MaxSteps uint64 `json:"maxSteps,omitempty" cbor:"2,keyasint,omitempty"`
}

// StopInfo is the wire form of intcode.Stop.
type StopInfo struct {
	Kind  string `json:"kind" cbor:"1,keyasint"`
	Value int64  `json:"value,omitempty" cbor:"2,keyasint,omitempty"`
}

// FaultInfo is the wire form of intcode.Fault.
type FaultInfo struct {
	Kind    string `json:"kind" cbor:"1,keyasint"`
	Opcode  int64  `json:"opcode" cbor:"2,keyasint"`
	PC      uint64 `json:"pc" cbor:"3,keyasint"`
	Addr    int64  `json:"addr,omitempty" cbor:"4,keyasint,omitempty"`
	Message string `json:"message" cbor:"5,keyasint"`
}

type RunResponse struct {
	Stop      StopInfo   `json:"stop" cbor:"1,keyasint"`
	PC        uint64     `json:"pc" cbor:"2,keyasint"`
	Steps     uint64     `json:"steps" cbor:"3,keyasint"`
	Fault     *FaultInfo `json:"fault,omitempty" cbor:"4,keyasint,omitempty"`
	Exhausted bool       `json:"exhausted,omitempty" cbor:"5,keyasint,omitempty"`
}

type DrainRequest struct {
	ID       string `json:"id" cbor:"1,keyasint"`
	Policy   string `json:"policy,omitempty" cbor:"2,keyasint,omitempty"`
	MaxSteps uint64 `json:"maxSteps,omitempty" cbor:"3,keyasint,omitempty"`
}

type DrainResponse struct {
	Outputs   []int64    `json:"outputs" cbor:"1,keyasint"`
	Stop      StopInfo   `json:"stop" cbor:"2,keyasint"`
	Underflow bool       `json:"underflow,omitempty" cbor:"3,keyasint,omitempty"`
	Fault     *FaultInfo `json:"fault,omitempty" cbor:"4,keyasint,omitempty"`
	Exhausted bool       `json:"exhausted,omitempty" cbor:"5,keyasint,omitempty"`
	Steps     uint64     `json:"steps" cbor:"6,keyasint"`
}

type PeekRequest struct {
	ID    string `json:"id" cbor:"1,keyasint"`
	Addr  uint64 `json:"addr" cbor:"2,keyasint"`
	Count int    `json:"count,omitempty" cbor:"3,keyasint,omitempty"`
}

type PeekResponse struct {
	Values []int64 `json:"values" cbor:"1,keyasint"`
}

type PokeRequest struct {
	ID    string `json:"id" cbor:"1,keyasint"`
	Addr  uint64 `json:"addr" cbor:"2,keyasint"`
	Value int64  `json:"value" cbor:"3,keyasint"`
}

type PokeResponse struct{}

type CloneRequest struct {
	ID    string `json:"id" cbor:"1,keyasint"`
	Label string `json:"label,omitempty" cbor:"2,keyasint,omitempty"`
}

type CloneResponse struct {
	ID string `json:"id" cbor:"1,keyasint"`
}

type DestroyRequest struct {
	ID string `json:"id" cbor:"1,keyasint"`
}

type DestroyResponse struct{}

type SaveRequest struct {
	ID   string `json:"id" cbor:"1,keyasint"`
	Name string `json:"name" cbor:"2,keyasint"`
}

type SaveResponse struct {
	Name   string `json:"name" cbor:"1,keyasint"`
	Digest string `json:"digest" cbor:"2,keyasint"`
	Size   int    `json:"size" cbor:"3,keyasint"`
}

type RestoreRequest struct {
	Name  string `json:"name" cbor:"1,keyasint"`
	Label string `json:"label,omitempty" cbor:"2,keyasint,omitempty"`
}

type RestoreResponse struct {
	ID    string `json:"id" cbor:"1,keyasint"`
	State string `json:"state" cbor:"2,keyasint"`
}

func stopInfo(s intcode.Stop) StopInfo {
	info := StopInfo{Kind: s.Kind.String()}
	if s.Kind == intcode.StopOutput {
		info.Value = s.Value
	}
	return info
}

// faultInfo returns nil unless err is an engine fault.
func faultInfo(err error) *FaultInfo {
	f, ok := intcode.IsFault(err)
	if !ok {
		return nil
	}
	return &FaultInfo{
		Kind:    f.Kind.String(),
		Opcode:  f.Opcode,
		PC:      f.PC,
		Addr:    f.Addr,
		Message: f.Error(),
	}
}

func isUnderflow(err error) bool {
	return errors.Is(err, intcode.ErrInputUnderflow)
}
