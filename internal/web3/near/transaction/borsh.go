package transaction

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
)

// encoder writes the subset of the borsh format used by NEAR transactions.
// Integers are little endian; strings and byte vectors carry a u32 length.
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) u8(v uint8) { e.buf.WriteByte(v) }

func (e *encoder) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) u128(v *big.Int) error {
	if v == nil {
		v = new(big.Int)
	}
	if v.Sign() < 0 || v.BitLen() > 128 {
		return fmt.Errorf("value %s does not fit in u128", v)
	}
	var be [16]byte
	v.FillBytes(be[:])
	for i := 15; i >= 0; i-- {
		e.buf.WriteByte(be[i])
	}
	return nil
}

func (e *encoder) bytes(b []byte) {
	e.u32(uint32(len(b)))
	e.buf.Write(b)
}

func (e *encoder) string(s string) { e.bytes([]byte(s)) }

func (e *encoder) fixed(b []byte) { e.buf.Write(b) }

func (e *encoder) Bytes() []byte { return e.buf.Bytes() }
