package vectorindex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"

	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

const (
	formatMagic   = "PRFL"
	formatVersion = 1
	headerSize    = 16
)

// FlatL2 is an exact nearest-neighbour index over Euclidean distance.
// Vectors are identified by their insertion position.
type FlatL2 struct {
	dim  int
	vecs [][]float32
}

// NewFlatL2 creates an empty index. A dim of 0 lets the first Add decide.
func NewFlatL2(dim int) *FlatL2 {
	return &FlatL2{dim: dim}
}

func (i *FlatL2) Add(vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	dim := i.dim
	if dim == 0 {
		dim = len(vectors[0])
	}
	if dim == 0 {
		return fmt.Errorf("%w: zero-length vector", domain.ErrIndexBuild)
	}
	for j, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, index expects %d", domain.ErrDimensionMismatch, j, len(v), dim)
		}
	}
	i.dim = dim
	for _, v := range vectors {
		i.vecs = append(i.vecs, append([]float32(nil), v...))
	}
	return nil
}

// Search returns up to k neighbours ordered by ascending distance. Equal
// distances keep insertion order.
func (i *FlatL2) Search(query []float32, k int) ([]port.Neighbor, error) {
	if len(i.vecs) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != i.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", domain.ErrDimensionMismatch, len(query), i.dim)
	}

	hits := make([]port.Neighbor, len(i.vecs))
	for pos, v := range i.vecs {
		hits[pos] = port.Neighbor{Position: pos, Distance: l2(query, v)}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Distance < hits[b].Distance
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func (i *FlatL2) Count() int {
	return len(i.vecs)
}

func (i *FlatL2) Dimension() int {
	return i.dim
}

// MarshalBinary stores: magic, version(uint32), dim(uint32), n(uint32),
// then n*dim little-endian float32 values in insertion order.
func (i *FlatL2) MarshalBinary() ([]byte, error) {
	out := make([]byte, headerSize, headerSize+4*i.dim*len(i.vecs))
	copy(out[0:4], formatMagic)
	binary.LittleEndian.PutUint32(out[4:8], formatVersion)
	binary.LittleEndian.PutUint32(out[8:12], uint32(i.dim))
	binary.LittleEndian.PutUint32(out[12:16], uint32(len(i.vecs)))

	b := make([]byte, 4)
	for _, v := range i.vecs {
		for _, f := range v {
			binary.LittleEndian.PutUint32(b, math.Float32bits(f))
			out = append(out, b...)
		}
	}
	return out, nil
}

// UnmarshalBinary replaces the index contents with the serialized data.
func (i *FlatL2) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize || string(data[0:4]) != formatMagic {
		return errors.New("vectorindex: invalid data")
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != formatVersion {
		return fmt.Errorf("vectorindex: unsupported format version %d", v)
	}
	dim := int(binary.LittleEndian.Uint32(data[8:12]))
	n := int(binary.LittleEndian.Uint32(data[12:16]))

	payload := len(data) - headerSize
	if dim == 0 {
		if n > 0 || payload > 0 {
			return fmt.Errorf("vectorindex: %d vectors with zero dimension", n)
		}
	} else if payload%(4*dim) != 0 || payload/(4*dim) != n {
		return fmt.Errorf("vectorindex: data size %d does not hold %d vectors of dimension %d", len(data), n, dim)
	}

	vecs := make([][]float32, n)
	off := headerSize
	for idx := 0; idx < n; idx++ {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
		}
		vecs[idx] = vec
	}

	i.dim = dim
	i.vecs = vecs
	return nil
}

// Load decodes a serialized index.
func Load(data []byte) (*FlatL2, error) {
	idx := &FlatL2{}
	if err := idx.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return idx, nil
}

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

var _ port.VectorIndex = (*FlatL2)(nil)
