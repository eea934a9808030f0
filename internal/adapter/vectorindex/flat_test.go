package vectorindex

import (
	"encoding/binary"
	"errors"
	"math"
	"reflect"
	"testing"

	"pdfrag/internal/domain"
)

func TestFlatL2SearchOrder(t *testing.T) {
	idx := NewFlatL2(0)
	vectors := [][]float32{{0.9}, {0.1}, {0.5}, {0.3}, {0.7}}
	if err := idx.Add(vectors); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search([]float32{0}, 3)
	if err != nil {
		t.Fatal(err)
	}

	var positions []int
	for _, h := range hits {
		positions = append(positions, h.Position)
	}
	if !reflect.DeepEqual(positions, []int{1, 3, 2}) {
		t.Errorf("expected positions [1 3 2], got %v", positions)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Distance < hits[i-1].Distance {
			t.Errorf("hits not sorted by distance: %v", hits)
		}
	}
	if math.Abs(hits[0].Distance-0.1) > 1e-6 {
		t.Errorf("expected nearest distance ~0.1, got %f", hits[0].Distance)
	}
}

func TestFlatL2EuclideanDistance(t *testing.T) {
	idx := NewFlatL2(2)
	if err := idx.Add([][]float32{{3, 4}, {1, 0}}); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search([]float32{0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].Position != 1 || hits[0].Distance != 1 {
		t.Errorf("unexpected first hit: %+v", hits[0])
	}
	if hits[1].Position != 0 || hits[1].Distance != 5 {
		t.Errorf("unexpected second hit: %+v", hits[1])
	}
}

func TestFlatL2TiesKeepInsertionOrder(t *testing.T) {
	idx := NewFlatL2(0)
	if err := idx.Add([][]float32{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search([]float32{0, 0}, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i, h := range hits {
		if h.Position != i {
			t.Errorf("expected position %d at rank %d, got %d", i, i, h.Position)
		}
	}
}

func TestFlatL2KLargerThanCount(t *testing.T) {
	idx := NewFlatL2(0)
	if err := idx.Add([][]float32{{1}, {2}}); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search([]float32{0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("expected 2 hits when k > count, got %d", len(hits))
	}
}

func TestFlatL2DimensionMismatch(t *testing.T) {
	idx := NewFlatL2(0)
	if err := idx.Add([][]float32{{1, 2, 3}}); err != nil {
		t.Fatal(err)
	}

	if _, err := idx.Search([]float32{1, 2}, 1); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on search, got %v", err)
	}
	if err := idx.Add([][]float32{{1, 2}}); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on add, got %v", err)
	}
	if idx.Count() != 1 {
		t.Errorf("failed add must not change count, got %d", idx.Count())
	}
}

func TestFlatL2Empty(t *testing.T) {
	idx := NewFlatL2(0)
	hits, err := idx.Search([]float32{1}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits from empty index, got %d", len(hits))
	}
}

func TestFlatL2RoundTrip(t *testing.T) {
	idx := NewFlatL2(0)
	vectors := [][]float32{
		{0.123456789, -1.5, float32(math.Pi)},
		{math.SmallestNonzeroFloat32, math.MaxFloat32, 0},
		{-0.0001, 42, -7.25},
	}
	if err := idx.Add(vectors); err != nil {
		t.Fatal(err)
	}

	data, err := idx.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(data)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Count() != idx.Count() || loaded.Dimension() != idx.Dimension() {
		t.Fatalf("count/dimension changed: %d/%d vs %d/%d", loaded.Count(), loaded.Dimension(), idx.Count(), idx.Dimension())
	}
	for i := range vectors {
		for j := range vectors[i] {
			if math.Float32bits(loaded.vecs[i][j]) != math.Float32bits(vectors[i][j]) {
				t.Errorf("vector %d[%d] changed: %v vs %v", i, j, loaded.vecs[i][j], vectors[i][j])
			}
		}
	}

	query := []float32{0.1, 0.2, 0.3}
	before, _ := idx.Search(query, 3)
	after, _ := loaded.Search(query, 3)
	if !reflect.DeepEqual(before, after) {
		t.Errorf("search results changed after round trip: %v vs %v", before, after)
	}
}

func TestFlatL2UnmarshalInvalid(t *testing.T) {
	idx := NewFlatL2(0)
	if err := idx.Add([][]float32{{1, 2}, {3, 4}}); err != nil {
		t.Fatal(err)
	}
	data, _ := idx.MarshalBinary()

	cases := map[string][]byte{
		"empty":     nil,
		"bad magic": append([]byte("XXXX"), data[4:]...),
		"truncated": data[:len(data)-3],
		"zero dim":  header(0, 5_000_000),
		"huge n":    header(2, 0xFFFFFFFF),
		"huge dim":  header(0xFFFFFFFF, 0xFFFFFFFF),
	}
	for name, payload := range cases {
		if _, err := Load(payload); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func header(dim, n uint32) []byte {
	b := make([]byte, headerSize)
	copy(b, formatMagic)
	binary.LittleEndian.PutUint32(b[4:8], formatVersion)
	binary.LittleEndian.PutUint32(b[8:12], dim)
	binary.LittleEndian.PutUint32(b[12:16], n)
	return b
}
