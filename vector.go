package pingpong

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"
)

// Vector is the state vector: an ordered sequence of scalars grouped in
// RGBA-shaped records of ComponentsPerRecord values.
type Vector []float32

// Sequential returns the vector 0, 1, ..., n-1.
func Sequential(n int) Vector {
	v := make(Vector, n)
	for i := range v {
		v[i] = float32(i)
	}
	return v
}

// SequentialMod returns the vector i mod modulus for i in [0, n).
// For n <= modulus it equals Sequential(n).
func SequentialMod(n int, modulus float32) Vector {
	v := make(Vector, n)
	for i := range v {
		v[i] = math32.Mod(float32(i), modulus)
	}
	return v
}

// Clone returns a copy of v. Clone of nil is nil.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Records returns the number of complete records in v.
func (v Vector) Records() int {
	return len(v) / ComponentsPerRecord
}

// Equal reports whether v and o hold bit-identical values.
func (v Vector) Equal(o Vector) bool {
	if len(v) != len(o) {
		return false
	}
	for i := range v {
		if math.Float32bits(v[i]) != math.Float32bits(o[i]) {
			return false
		}
	}
	return true
}

// InRange reports whether every value lies in [0, bound). When it does not,
// the index of the first offending value is returned.
func (v Vector) InRange(bound float32) (int, bool) {
	for i, x := range v {
		if !(x >= 0 && x < bound) {
			return i, false
		}
	}
	return -1, true
}

// Step returns the successor of a single value: (x + 1) mod modulus.
// This is the arithmetic the compute shader performs per component.
func Step(x, modulus float32) float32 {
	return math32.Mod(x+1, modulus)
}

// AdvanceInto writes the successor of src into dst. The slices must have
// equal length and must not alias: dst is the "next" buffer.
func AdvanceInto(dst, src Vector, modulus float32) {
	for i, x := range src {
		dst[i] = Step(x, modulus)
	}
}

// Advance returns a new vector holding the state after ticks updates.
// It is the host reference for (v0 + t) mod modulus.
func (v Vector) Advance(ticks int, modulus float32) Vector {
	cur := v.Clone()
	next := make(Vector, len(v))
	for range ticks {
		AdvanceInto(next, cur, modulus)
		cur, next = next, cur
	}
	return cur
}

// Bytes encodes v as little-endian float32 values, the layout of a state
// buffer and of an RGBA32Float texel row.
func (v Vector) Bytes() []byte {
	out := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(x))
	}
	return out
}

// VectorFromBytes decodes little-endian float32 values.
func VectorFromBytes(b []byte) Vector {
	v := make(Vector, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// TexelOf maps a scalar index to its texel column and channel:
// index id lives in texel (id/4, 0), channel id%4.
func TexelOf(id int) (x, channel int) {
	return id / ComponentsPerRecord, id % ComponentsPerRecord
}

// Red maps a value to the red intensity of its plotted point.
func Red(value, normMax float32) float32 {
	return value / normMax
}

// PointX returns the normalized device x coordinate of point id out of n,
// centering the n points evenly across the target width.
func PointX(id, n int) float32 {
	return (float32(id)+0.5)/float32(n)*2 - 1
}
