package embedding

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ELITR/alignmeet/internal/codec"
	"github.com/ELITR/alignmeet/internal/model"
)

// ErrStaleCache means a cache file exists but was computed for different
// source lines, or by a different model.
var ErrStaleCache = errors.New("embedding cache is stale")

// ErrBadCache means the cache file is not in the expected format.
var ErrBadCache = errors.New("embedding cache is corrupt")

var cacheMagic = [4]byte{'A', 'M', 'E', 'B'}

const cacheVersion uint16 = 1

// maxCacheDim bounds the vector width a cache header may claim.
const maxCacheDim = 1 << 16

// CachePath returns the cache file that belongs to source.
func CachePath(source string) string {
	return source + codec.CacheSuffix
}

// Fingerprint hashes the model name and the source lines.
func Fingerprint(modelName string, texts []string) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(modelName))
	h.Write([]byte{0})
	var n [4]byte
	for _, t := range texts {
		binary.LittleEndian.PutUint32(n[:], uint32(len(t)))
		h.Write(n[:])
		h.Write([]byte(t))
	}
	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

type cacheHeader struct {
	Magic       [4]byte
	Version     uint16
	Fingerprint [sha256.Size]byte
	Count       uint32
	Dim         uint32
}

// WriteCache serialises vectors. All vectors must share one dimension.
func WriteCache(w io.Writer, fingerprint [sha256.Size]byte, vectors []model.Vector) error {
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}
	bw := bufio.NewWriter(w)
	hdr := cacheHeader{
		Magic:       cacheMagic,
		Version:     cacheVersion,
		Fingerprint: fingerprint,
		Count:       uint32(len(vectors)),
		Dim:         uint32(dim),
	}
	if err := binary.Write(bw, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("write cache header: %w", err)
	}
	var buf [4]byte
	for _, v := range vectors {
		for _, x := range v {
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(x))
			bw.Write(buf[:])
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// ReadCache loads vectors and checks them against the expected fingerprint.
func ReadCache(r io.Reader, fingerprint [sha256.Size]byte) ([]model.Vector, error) {
	return readCache(r, &fingerprint)
}

// ReadCacheFile loads the vectors stored at path without checking which
// source lines they were computed from.
func ReadCacheFile(path string) ([]model.Vector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vectors, err := readCache(f, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vectors, nil
}

func readCache(r io.Reader, fingerprint *[sha256.Size]byte) ([]model.Vector, error) {
	br := bufio.NewReader(r)
	var hdr cacheHeader
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read cache header: %w", ErrBadCache)
	}
	if hdr.Magic != cacheMagic || hdr.Version != cacheVersion {
		return nil, ErrBadCache
	}
	if fingerprint != nil && !bytes.Equal(hdr.Fingerprint[:], fingerprint[:]) {
		return nil, ErrStaleCache
	}
	if hdr.Dim > maxCacheDim || (hdr.Dim == 0 && hdr.Count > 0) {
		return nil, fmt.Errorf("vector dimension %d: %w", hdr.Dim, ErrBadCache)
	}
	// Count is not trusted until the vectors have been read.
	vectors := make([]model.Vector, 0, min(int(hdr.Count), 1024))
	buf := make([]byte, 4*int(hdr.Dim))
	for i := 0; i < int(hdr.Count); i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, ErrBadCache)
		}
		v := make(model.Vector, hdr.Dim)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*j:]))
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

// LoadCacheFile reads the cache beside source. A missing file is reported
// with an error satisfying errors.Is(err, os.ErrNotExist).
func LoadCacheFile(source string, fingerprint [sha256.Size]byte) ([]model.Vector, error) {
	f, err := os.Open(CachePath(source))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCache(f, fingerprint)
}

// SaveCacheFile writes the cache beside source atomically.
func SaveCacheFile(source string, fingerprint [sha256.Size]byte, vectors []model.Vector) error {
	return codec.WriteFileAtomic(CachePath(source), func(f *os.File) error {
		return WriteCache(f, fingerprint, vectors)
	})
}
