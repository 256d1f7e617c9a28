package archive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Format is the compression wrapped around a release tarball
type Format int

const (
	FormatUnknown Format = iota
	FormatTar
	FormatGzip
	FormatXz
	FormatZstd
)

// String returns the string representation of Format
func (f Format) String() string {
	switch f {
	case FormatTar:
		return "tar"
	case FormatGzip:
		return "tar.gz"
	case FormatXz:
		return "tar.xz"
	case FormatZstd:
		return "tar.zst"
	default:
		return "unknown"
	}
}

// Magic bytes for archive detection
var (
	gzipMagic = []byte{0x1F, 0x8B}
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	xzMagic   = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
	tarMagic  = []byte("ustar")
)

// DefaultMaxEntrySize bounds the size of an extracted binary
const DefaultMaxEntrySize int64 = 1 << 30

// DetectFormat determines the archive format from its leading bytes
func DetectFormat(header []byte) Format {
	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return FormatGzip
	case bytes.HasPrefix(header, zstdMagic):
		return FormatZstd
	case bytes.HasPrefix(header, xzMagic):
		return FormatXz
	case len(header) >= 262 && bytes.HasPrefix(header[257:], tarMagic):
		return FormatTar
	default:
		return FormatUnknown
	}
}

// FormatFromName guesses the archive format from a file name
func FormatFromName(name string) Format {
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return FormatGzip
	case strings.HasSuffix(name, ".tar.xz"):
		return FormatXz
	case strings.HasSuffix(name, ".tar.zst"):
		return FormatZstd
	case strings.HasSuffix(name, ".tar"):
		return FormatTar
	default:
		return FormatUnknown
	}
}

// newTarReader wraps data in the decompressor matching its format
func newTarReader(data []byte) (*tar.Reader, func(), error) {
	noop := func() {}

	switch DetectFormat(data) {
	case FormatGzip:
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, noop, err
		}
		return tar.NewReader(gr), func() { gr.Close() }, nil
	case FormatZstd:
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, noop, err
		}
		return tar.NewReader(zr), zr.Close, nil
	case FormatXz:
		xr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, noop, err
		}
		return tar.NewReader(xr), noop, nil
	case FormatTar:
		return tar.NewReader(bytes.NewReader(data)), noop, nil
	default:
		return nil, noop, fmt.Errorf("unrecognised archive format")
	}
}

// ExtractFile returns the contents and mode of the regular file called name.
// An exact path match wins; otherwise the entry whose base name is name is
// used, provided there is exactly one.
func ExtractFile(data []byte, name string, maxSize int64) ([]byte, int64, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxEntrySize
	}

	tr, closer, err := newTarReader(data)
	if err != nil {
		return nil, 0, err
	}
	defer closer()

	var (
		found    []byte
		mode     int64
		matches  int
		exactHit bool
	)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("tar read error: %w", err)
		}

		entry := path.Clean(strings.TrimPrefix(header.Name, "./"))
		if entry == ".." || strings.HasPrefix(entry, "../") || path.IsAbs(entry) {
			return nil, 0, fmt.Errorf("invalid file path in archive: %s", header.Name)
		}

		if header.Typeflag == tar.TypeDir {
			continue
		}

		exact := entry == name
		if !exact && path.Base(entry) != name {
			continue
		}
		if exactHit {
			continue
		}
		if header.Typeflag != tar.TypeReg {
			return nil, 0, fmt.Errorf("%s is not a regular file", header.Name)
		}
		if header.Size > maxSize {
			return nil, 0, fmt.Errorf("%s is %d bytes, limit is %d", header.Name, header.Size, maxSize)
		}

		contents, err := io.ReadAll(io.LimitReader(tr, maxSize+1))
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read %s: %w", header.Name, err)
		}
		if int64(len(contents)) > maxSize {
			return nil, 0, fmt.Errorf("%s exceeds %d bytes", header.Name, maxSize)
		}

		found = contents
		mode = header.Mode
		matches++
		exactHit = exact
	}

	if found == nil {
		return nil, 0, fmt.Errorf("%s not found in archive", name)
	}
	if !exactHit && matches > 1 {
		return nil, 0, fmt.Errorf("%s is ambiguous: %d entries match", name, matches)
	}

	return found, mode, nil
}

// Entry is a file written into a tarball
type Entry struct {
	Name string
	Mode int64
	Data []byte
}

// Pack creates a tarball with the given entries in the requested format
func Pack(format Format, entries []Entry) ([]byte, error) {
	var buf bytes.Buffer

	var (
		w   io.Writer
		fin func() error
	)

	switch format {
	case FormatGzip:
		gw := gzip.NewWriter(&buf)
		w, fin = gw, gw.Close
	case FormatZstd:
		zw, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		w, fin = zw, zw.Close
	case FormatXz:
		xw, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		w, fin = xw, xw.Close
	case FormatTar:
		w, fin = &buf, func() error { return nil }
	default:
		return nil, fmt.Errorf("cannot pack format %s", format)
	}

	tw := tar.NewWriter(w)
	for _, e := range entries {
		if err := addTarFile(tw, e); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := fin(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// addTarFile adds a file to a tar archive
func addTarFile(tw *tar.Writer, e Entry) error {
	mode := e.Mode
	if mode == 0 {
		mode = 0644
	}

	header := &tar.Header{
		Name:     e.Name,
		Mode:     mode,
		Size:     int64(len(e.Data)),
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	if _, err := io.Copy(tw, bytes.NewReader(e.Data)); err != nil {
		return err
	}

	return nil
}
