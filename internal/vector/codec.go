package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode serializes a vector as little-endian float32 bytes for BLOB storage.
func Encode(v []float32) []byte {
	const size = 4
	out := make([]byte, len(v)*size)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(f))
	}
	return out
}

// Decode deserializes little-endian float32 bytes into a vector of the given
// dimensionality. A length mismatch is a configuration error (all embeddings
// in a deployment share one dimensionality), not a per-row condition.
func Decode(b []byte, dimensions int) ([]float32, error) {
	const size = 4
	if len(b) != dimensions*size {
		return nil, fmt.Errorf("embedding blob is %d bytes, expected %d (dimensions=%d)", len(b), dimensions*size, dimensions)
	}
	out := make([]float32, dimensions)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out, nil
}
