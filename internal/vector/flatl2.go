// Package vector provides an exact nearest-neighbor index over float32 vectors.
package vector

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
)

// FlatL2 is a flat index with exhaustive squared-L2 search. Vectors are keyed by
// insertion position, so position N always refers to the N-th vector ever added.
// FlatL2 is not safe for concurrent use; the owning store serializes access.
type FlatL2 struct {
	dimensions int
	vectors    [][]float32
}

// Neighbor is one nearest-neighbor hit: insertion position and squared L2 distance.
type Neighbor struct {
	Pos        int
	SqDistance float64
}

// NewFlatL2 creates an empty flat index with the given dimension.
func NewFlatL2(dimensions int) (*FlatL2, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatL2{
		dimensions: dimensions,
		vectors:    make([][]float32, 0),
	}, nil
}

// Dimensions returns the vector dimension.
func (f *FlatL2) Dimensions() int {
	return f.dimensions
}

// Ntotal returns the number of vectors in the index.
func (f *FlatL2) Ntotal() int {
	return len(f.vectors)
}

// Add appends vectors to the index. All dimensions are validated before anything
// is appended, so a failed Add leaves the index unchanged.
func (f *FlatL2) Add(vectors [][]float32) error {
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(vec), f.dimensions)
		}
	}
	for _, vec := range vectors {
		v := make([]float32, f.dimensions)
		copy(v, vec)
		f.vectors = append(f.vectors, v)
	}
	return nil
}

// Search returns up to k neighbors ordered by ascending squared L2 distance.
// k is clamped to the index size; k <= 0 or an empty index yields no results.
func (f *FlatL2) Search(query []float32, k int) ([]Neighbor, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	if k <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}
	neighbors := make([]Neighbor, len(f.vectors))
	for i, vec := range f.vectors {
		var d float64
		for j := 0; j < f.dimensions; j++ {
			diff := float64(query[j] - vec[j])
			d += diff * diff
		}
		neighbors[i] = Neighbor{Pos: i, SqDistance: d}
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].SqDistance != neighbors[j].SqDistance {
			return neighbors[i].SqDistance < neighbors[j].SqDistance
		}
		return neighbors[i].Pos < neighbors[j].Pos
	})
	if k > len(neighbors) {
		k = len(neighbors)
	}
	return neighbors[:k], nil
}

// Reset discards all vectors, keeping the dimension.
func (f *FlatL2) Reset() {
	f.vectors = f.vectors[:0]
}

// Save persists the index to path. Directory is created if needed.
// Format: dimensions (uint32), count (uint32), then count vectors of
// dimensions*4 bytes each, all little-endian.
func (f *FlatL2) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer file.Close()
	if err := binary.Write(file, binary.LittleEndian, uint32(f.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(file, binary.LittleEndian, uint32(len(f.vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, vec := range f.vectors {
		if _, err := file.Write(float32SliceToBytes(vec)); err != nil {
			return fmt.Errorf("write vector %d: %w", i, err)
		}
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents. The file's
// dimension must match the index's. A missing file surfaces as a wrapped
// fs.ErrNotExist so callers can distinguish absent from corrupt artifacts.
func (f *FlatL2) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()
	var dim, n uint32
	if err := binary.Read(file, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != f.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, f.dimensions)
	}
	if err := binary.Read(file, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	// The count comes from disk; cap it against the file size before allocating.
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat index file: %w", err)
	}
	const headerSize = 8
	vectorSize := int64(f.dimensions) * 4
	if max := (info.Size() - headerSize) / vectorSize; int64(n) > max {
		return fmt.Errorf("vector count %d exceeds file size (at most %d fit)", n, max)
	}
	vectors := make([][]float32, 0, n)
	buf := make([]byte, f.dimensions*4)
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(file, buf); err != nil {
			return fmt.Errorf("read vector %d: %w", i, err)
		}
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	f.vectors = vectors
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
