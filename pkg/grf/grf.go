// Package grf reads Ragnarok Online GRF 0x200 archives.
//
// An Archive is an fs.FS. Names are matched case-insensitively and may use
// either slash, so the texture paths stored in RSM models resolve directly.
package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Faultbox/pcexport/pkg/encoding"
)

const (
	grfMagic   = "Master of Magic"
	headerSize = 46
	version200 = 0x200

	flagFile      = 0x01
	flagEncrypted = 0x06
)

var (
	// ErrInvalidArchive is returned for files that are not GRF archives.
	ErrInvalidArchive = errors.New("invalid GRF archive")
	// ErrEncrypted is returned when reading an encrypted entry.
	ErrEncrypted = errors.New("encrypted GRF entries are not supported")
)

// Header is the fixed archive header.
type Header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry is one file in the archive table.
type Entry struct {
	Name             string
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Archive is an opened GRF archive.
type Archive struct {
	mu      sync.Mutex
	r       io.ReaderAt
	closer  io.Closer
	header  Header
	entries map[string]*Entry
	modTime time.Time
}

var (
	_ fs.FS         = (*Archive)(nil)
	_ fs.ReadFileFS = (*Archive)(nil)
	_ fs.StatFS     = (*Archive)(nil)
)

// Open opens a GRF archive on disk.
func Open(name string) (*Archive, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	a, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	a.closer = f
	if st, err := f.Stat(); err == nil {
		a.modTime = st.ModTime()
	}
	return a, nil
}

// NewReader reads the archive header and file table from r.
func NewReader(r io.ReaderAt) (*Archive, error) {
	a := &Archive{r: r, entries: make(map[string]*Entry)}
	if err := a.readHeader(); err != nil {
		return nil, err
	}
	if err := a.readFileTable(); err != nil {
		return nil, fmt.Errorf("reading file table: %w", err)
	}
	return a, nil
}

// Close releases the underlying file, if any.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

func (a *Archive) readHeader() error {
	sr := io.NewSectionReader(a.r, 0, headerSize)
	if err := binary.Read(sr, binary.LittleEndian, &a.header); err != nil {
		return fmt.Errorf("%w: reading header: %v", ErrInvalidArchive, err)
	}
	if string(a.header.Magic[:]) != grfMagic {
		return fmt.Errorf("%w: bad magic", ErrInvalidArchive)
	}
	if a.header.Version != version200 {
		return fmt.Errorf("%w: unsupported version 0x%x", ErrInvalidArchive, a.header.Version)
	}
	return nil
}

func (a *Archive) readFileTable() error {
	var sizes [2]uint32
	base := int64(a.header.TableOffset) + headerSize
	if err := binary.Read(io.NewSectionReader(a.r, base, 8), binary.LittleEndian, &sizes); err != nil {
		return err
	}

	table, err := inflate(io.NewSectionReader(a.r, base+8, int64(sizes[0])), sizes[1])
	if err != nil {
		return err
	}

	count := int64(a.header.FileCount) - int64(a.header.Seed) - 7
	for off := 0; count > 0; count-- {
		end := bytes.IndexByte(table[off:], 0)
		if end < 0 || off+end+1+17 > len(table) {
			return fmt.Errorf("%w: truncated file table", ErrInvalidArchive)
		}
		raw := table[off : off+end]
		off += end + 1

		e := &Entry{
			Name:             encoding.EUCKRToUTF8(raw),
			CompressedSize:   binary.LittleEndian.Uint32(table[off:]),
			AlignedSize:      binary.LittleEndian.Uint32(table[off+4:]),
			UncompressedSize: binary.LittleEndian.Uint32(table[off+8:]),
			Flags:            table[off+12],
			Offset:           binary.LittleEndian.Uint32(table[off+13:]),
		}
		off += 17

		if e.Flags&flagFile != 0 {
			a.entries[key(e.Name)] = e
		}
	}
	return nil
}

// List returns all file names in the archive, sorted, with forward
// slashes.
func (a *Archive) List() []string {
	names := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		names = append(names, encoding.SlashPath(e.Name))
	}
	sort.Strings(names)
	return names
}

// Len returns the number of files in the archive.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Contains reports whether the archive holds name.
func (a *Archive) Contains(name string) bool {
	_, ok := a.entries[key(name)]
	return ok
}

// Entry returns the table entry for name.
func (a *Archive) Entry(name string) (*Entry, bool) {
	e, ok := a.entries[key(name)]
	return e, ok
}

// ReadFile returns the decompressed contents of name.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	e, ok := a.entries[key(name)]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	if e.Flags&flagEncrypted != 0 {
		return nil, &fs.PathError{Op: "read", Path: name, Err: ErrEncrypted}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	sr := io.NewSectionReader(a.r, int64(e.Offset)+headerSize, int64(e.CompressedSize))
	if e.CompressedSize == e.UncompressedSize {
		data := make([]byte, e.UncompressedSize)
		if _, err := io.ReadFull(sr, data); err != nil {
			return nil, &fs.PathError{Op: "read", Path: name, Err: err}
		}
		return data, nil
	}
	data, err := inflate(sr, e.UncompressedSize)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	return data, nil
}

// Open implements fs.FS. Directories are not listed.
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	data, err := a.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return &file{Reader: bytes.NewReader(data), info: a.info(name, int64(len(data)))}, nil
}

// Stat implements fs.StatFS without decompressing the entry.
func (a *Archive) Stat(name string) (fs.FileInfo, error) {
	e, ok := a.entries[key(name)]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return a.info(name, int64(e.UncompressedSize)), nil
}

func (a *Archive) info(name string, size int64) fileInfo {
	return fileInfo{name: path.Base(encoding.SlashPath(name)), size: size, modTime: a.modTime}
}

func inflate(r io.Reader, size uint32) ([]byte, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	data := make([]byte, size)
	if _, err := io.ReadFull(zr, data); err != nil {
		return nil, err
	}
	return data, nil
}

// key normalises a name for lookup.
func key(name string) string {
	return strings.ToLower(encoding.SlashPath(name))
}

type file struct {
	*bytes.Reader
	info fileInfo
}

func (f *file) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *file) Close() error               { return nil }

type fileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (fi fileInfo) Name() string       { return fi.name }
func (fi fileInfo) Size() int64        { return fi.size }
func (fi fileInfo) Mode() fs.FileMode  { return 0o444 }
func (fi fileInfo) ModTime() time.Time { return fi.modTime }
func (fi fileInfo) IsDir() bool        { return false }
func (fi fileInfo) Sys() any           { return nil }
