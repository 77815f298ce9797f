package vector

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestNewFlatL2(t *testing.T) {
	if _, err := NewFlatL2(0); err == nil {
		t.Error("expected error for zero dimensions")
	}
	if _, err := NewFlatL2(-3); err == nil {
		t.Error("expected error for negative dimensions")
	}
	idx, err := NewFlatL2(4)
	if err != nil {
		t.Fatalf("NewFlatL2: %v", err)
	}
	if idx.Dimensions() != 4 || idx.Ntotal() != 0 {
		t.Errorf("unexpected fresh index state: dim=%d ntotal=%d", idx.Dimensions(), idx.Ntotal())
	}
}

func TestAddDimensionMismatchIsAtomic(t *testing.T) {
	idx, _ := NewFlatL2(3)
	err := idx.Add([][]float32{
		{1, 0, 0},
		{0, 1}, // wrong dimension
	})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if idx.Ntotal() != 0 {
		t.Errorf("failed Add mutated the index: ntotal=%d", idx.Ntotal())
	}
}

func TestSearchOrdering(t *testing.T) {
	idx, _ := NewFlatL2(2)
	if err := idx.Add([][]float32{
		{10, 10},
		{1, 1},
		{0, 0},
		{5, 5},
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	neighbors, err := idx.Search([]float32{0, 0}, 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	wantPos := []int{2, 1, 3, 0}
	if len(neighbors) != len(wantPos) {
		t.Fatalf("expected %d neighbors, got %d", len(wantPos), len(neighbors))
	}
	for i, nb := range neighbors {
		if nb.Pos != wantPos[i] {
			t.Errorf("neighbor %d: expected pos %d, got %d", i, wantPos[i], nb.Pos)
		}
		if i > 0 && nb.SqDistance < neighbors[i-1].SqDistance {
			t.Errorf("neighbors not in ascending distance order at %d", i)
		}
	}
	if neighbors[0].SqDistance != 0 {
		t.Errorf("exact match should have zero distance, got %f", neighbors[0].SqDistance)
	}
	if got, want := neighbors[1].SqDistance, 2.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("squared distance for (1,1): expected %f, got %f", want, got)
	}
}

func TestSearchClampsAndEmpty(t *testing.T) {
	idx, _ := NewFlatL2(2)
	if res, err := idx.Search([]float32{0, 0}, 5); err != nil || res != nil {
		t.Errorf("empty index search: expected nil, nil; got %v, %v", res, err)
	}
	_ = idx.Add([][]float32{{1, 2}, {3, 4}})
	res, err := idx.Search([]float32{0, 0}, 100)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 2 {
		t.Errorf("expected k clamped to 2, got %d", len(res))
	}
	if res, _ := idx.Search([]float32{0, 0}, 0); res != nil {
		t.Errorf("k=0 should yield no results, got %d", len(res))
	}
	if _, err := idx.Search([]float32{0, 0, 0}, 1); err == nil {
		t.Error("expected query dimension mismatch error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.vec")

	idx, _ := NewFlatL2(3)
	vectors := [][]float32{
		{1.5, -2.25, 0},
		{0.001, 1e6, -1e-6},
	}
	if err := idx.Add(vectors); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, _ := NewFlatL2(3)
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Ntotal() != 2 {
		t.Fatalf("expected 2 vectors after load, got %d", loaded.Ntotal())
	}
	for i, vec := range vectors {
		res, err := loaded.Search(vec, 1)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if res[0].Pos != i || res[0].SqDistance != 0 {
			t.Errorf("vector %d did not round-trip exactly: pos=%d dist=%f", i, res[0].Pos, res[0].SqDistance)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	idx, _ := NewFlatL2(3)
	err := idx.Load(filepath.Join(t.TempDir(), "nope.vec"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected wrapped fs.ErrNotExist, got %v", err)
	}
}

func TestLoadDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.vec")
	idx, _ := NewFlatL2(4)
	_ = idx.Add([][]float32{{1, 2, 3, 4}})
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	other, _ := NewFlatL2(3)
	if err := other.Load(path); err == nil {
		t.Error("expected dimension mismatch on load")
	}
}

func TestLoadTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.vec")
	idx, _ := NewFlatL2(3)
	_ = idx.Add([][]float32{{1, 2, 3}, {4, 5, 6}})
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if err := os.WriteFile(path, data[:len(data)-5], 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	other, _ := NewFlatL2(3)
	if err := other.Load(path); err == nil {
		t.Error("expected error loading truncated file")
	}
}

func TestLoadRejectsOversizedCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.vec")

	// Header claims ~4 billion vectors but the file holds one.
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint32(3))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(0xFFFFFFFF))
	buf.Write(float32SliceToBytes([]float32{1, 2, 3}))
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	idx, _ := NewFlatL2(3)
	if err := idx.Load(path); err == nil {
		t.Error("expected error for count exceeding file size")
	}
}

func TestReset(t *testing.T) {
	idx, _ := NewFlatL2(2)
	_ = idx.Add([][]float32{{1, 2}, {3, 4}})
	idx.Reset()
	if idx.Ntotal() != 0 {
		t.Errorf("expected empty index after reset, got %d", idx.Ntotal())
	}
	if idx.Dimensions() != 2 {
		t.Errorf("reset changed dimension: %d", idx.Dimensions())
	}
}
