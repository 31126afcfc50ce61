// Package snapshot persists Intcode machine images: a canonical CBOR wire
// form and a SQLite-backed store of named checkpoints.
package snapshot

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/intcode/pkg/intcode"
)

// FormatVersion is written into every encoded image.
const FormatVersion byte = 1

// ErrVersion marks an image written by an incompatible encoder.
var ErrVersion = errors.New("snapshot: unsupported format version")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("snapshot: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type wireImage struct {
	Version      byte             `cbor:"1,keyasint"`
	ISA          string           `cbor:"2,keyasint"`
	Memory       uint8            `cbor:"3,keyasint"`
	PC           uint64           `cbor:"4,keyasint"`
	RelativeBase int64            `cbor:"5,keyasint"`
	Cells        []int64          `cbor:"6,keyasint"`
	Overflow     map[uint64]int64 `cbor:"7,keyasint,omitempty"`
	Extent       uint64           `cbor:"8,keyasint"`
	Input        []int64          `cbor:"9,keyasint,omitempty"`
	State        uint8            `cbor:"10,keyasint"`
	Fault        *wireFault       `cbor:"11,keyasint,omitempty"`
	Steps        uint64           `cbor:"12,keyasint"`
}

type wireFault struct {
	Kind   uint8  `cbor:"1,keyasint"`
	Opcode int64  `cbor:"2,keyasint"`
	PC     uint64 `cbor:"3,keyasint"`
	Addr   int64  `cbor:"4,keyasint"`
}

// Marshal encodes an image. Equal images encode to equal bytes.
func Marshal(img intcode.Image) ([]byte, error) {
	w := wireImage{
		Version:      FormatVersion,
		ISA:          img.ISA,
		Memory:       uint8(img.Memory),
		PC:           img.PC,
		RelativeBase: img.RelativeBase,
		Cells:        img.Cells,
		Overflow:     img.Overflow,
		Extent:       img.Extent,
		Input:        img.Input,
		State:        uint8(img.State),
		Steps:        img.Steps,
	}
	if f := img.Fault; f != nil {
		w.Fault = &wireFault{Kind: uint8(f.Kind), Opcode: f.Opcode, PC: f.PC, Addr: f.Addr}
	}
	return cborEncMode.Marshal(&w)
}

// Unmarshal decodes an image written by Marshal.
func Unmarshal(data []byte) (intcode.Image, error) {
	var w wireImage
	if err := cbor.Unmarshal(data, &w); err != nil {
		return intcode.Image{}, fmt.Errorf("snapshot: unmarshal image: %w", err)
	}
	if w.Version != FormatVersion {
		return intcode.Image{}, fmt.Errorf("%w: %d", ErrVersion, w.Version)
	}
	img := intcode.Image{
		ISA:          w.ISA,
		Memory:       intcode.MemoryStrategy(w.Memory),
		PC:           w.PC,
		RelativeBase: w.RelativeBase,
		Cells:        w.Cells,
		Overflow:     w.Overflow,
		Extent:       w.Extent,
		Input:        w.Input,
		State:        intcode.State(w.State),
		Steps:        w.Steps,
	}
	if f := w.Fault; f != nil {
		img.Fault = &intcode.Fault{Kind: intcode.FaultKind(f.Kind), Opcode: f.Opcode, PC: f.PC, Addr: f.Addr}
	}
	return img, nil
}

// Digest returns the SHA-256 of the encoded form.
func Digest(data []byte) [32]byte {
	return sha256.Sum256(data)
}
