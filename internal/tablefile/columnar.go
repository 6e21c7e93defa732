package tablefile

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"
	"golang.org/x/crypto/blake2b"

	"github.com/ramonehamilton/deckstats/internal/dataerr"
)

// File layout:
//
//	header  magic(6) flags(1) reserved(1)
//	blocks  one gob-encoded Column per column, snappy-compressed if flagged
//	footer  gob-encoded footer
//	trailer footerLen(uint32 LE) blake2b-256(footer)(32) magic(6)
const (
	magic        = "DKCOL1"
	headerSize   = len(magic) + 2
	trailerSize  = 4 + blake2b.Size256 + len(magic)
	flagSnappy   = 1 << 0
	maxFooterLen = 64 << 20
)

// ErrCorrupt marks a columnar file that fails structural or checksum checks.
var ErrCorrupt = errors.New("corrupt columnar file")

// CorruptError describes why a columnar file was rejected. It matches both
// ErrCorrupt and dataerr.ErrDataIntegrity.
type CorruptError struct {
	Path   string
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt columnar file %s: %s", e.Path, e.Reason)
}

func (e *CorruptError) Is(target error) bool {
	return target == ErrCorrupt || target == dataerr.ErrDataIntegrity
}

func corrupt(path, format string, args ...interface{}) error {
	return &CorruptError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

type blockInfo struct {
	Name   string
	Kind   Kind
	Offset int64
	Length int64
	Sum    [blake2b.Size256]byte
}

type footer struct {
	Rows    int
	Columns []blockInfo
	Meta    map[string]string
}

// Info describes a columnar file without decoding its column blocks.
type Info struct {
	Rows       int
	Compressed bool
	Names      []string
	Kinds      map[string]Kind
	Meta       map[string]string
}

// WriteColumnar writes frame to path in the columnar layout.
func WriteColumnar(path string, frame *Frame, compress bool) error {
	return WriteAtomic(path, func(w io.Writer) error {
		return EncodeColumnar(w, frame, compress)
	})
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// EncodeColumnar writes frame to w in the columnar layout.
func EncodeColumnar(w io.Writer, frame *Frame, compress bool) error {
	cw := &countingWriter{w: w}

	var flags byte
	if compress {
		flags |= flagSnappy
	}
	if _, err := cw.Write(append([]byte(magic), flags, 0)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	ft := footer{Rows: frame.Rows(), Meta: frame.Meta}
	var buf bytes.Buffer
	for _, col := range frame.Columns() {
		buf.Reset()
		if err := gob.NewEncoder(&buf).Encode(col); err != nil {
			return fmt.Errorf("encode column %q: %w", col.Name, err)
		}
		block := buf.Bytes()
		if compress {
			block = snappy.Encode(nil, block)
		}

		info := blockInfo{
			Name:   col.Name,
			Kind:   col.Kind,
			Offset: cw.n,
			Length: int64(len(block)),
			Sum:    blake2b.Sum256(block),
		}
		if _, err := cw.Write(block); err != nil {
			return fmt.Errorf("write column %q: %w", col.Name, err)
		}
		ft.Columns = append(ft.Columns, info)
	}

	buf.Reset()
	if err := gob.NewEncoder(&buf).Encode(&ft); err != nil {
		return fmt.Errorf("encode footer: %w", err)
	}
	footerBytes := buf.Bytes()
	if _, err := cw.Write(footerBytes); err != nil {
		return fmt.Errorf("write footer: %w", err)
	}

	trailer := make([]byte, 0, trailerSize)
	trailer = binary.LittleEndian.AppendUint32(trailer, uint32(len(footerBytes)))
	sum := blake2b.Sum256(footerBytes)
	trailer = append(trailer, sum[:]...)
	trailer = append(trailer, magic...)
	if _, err := cw.Write(trailer); err != nil {
		return fmt.Errorf("write trailer: %w", err)
	}

	return nil
}

// columnarFile is an open columnar file with its footer decoded.
type columnarFile struct {
	path       string
	f          *os.File
	compressed bool
	footer     footer
}

func openColumnar(path string) (*columnarFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	cf := &columnarFile{path: path, f: f}
	if err := cf.readFooter(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return cf, nil
}

func (cf *columnarFile) Close() error {
	return cf.f.Close()
}

func (cf *columnarFile) readFooter() error {
	info, err := cf.f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size < int64(headerSize+trailerSize) {
		return corrupt(cf.path, "file too short (%d bytes)", size)
	}

	header := make([]byte, headerSize)
	if _, err := cf.f.ReadAt(header, 0); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if string(header[:len(magic)]) != magic {
		return corrupt(cf.path, "bad header magic")
	}
	cf.compressed = header[len(magic)]&flagSnappy != 0

	trailer := make([]byte, trailerSize)
	if _, err := cf.f.ReadAt(trailer, size-int64(trailerSize)); err != nil {
		return fmt.Errorf("read trailer: %w", err)
	}
	if string(trailer[4+blake2b.Size256:]) != magic {
		return corrupt(cf.path, "bad trailer magic")
	}

	footerLen := int64(binary.LittleEndian.Uint32(trailer[:4]))
	footerStart := size - int64(trailerSize) - footerLen
	if footerLen > maxFooterLen || footerStart < int64(headerSize) {
		return corrupt(cf.path, "footer length %d out of range", footerLen)
	}

	footerBytes := make([]byte, footerLen)
	if _, err := cf.f.ReadAt(footerBytes, footerStart); err != nil {
		return fmt.Errorf("read footer: %w", err)
	}
	if sum := blake2b.Sum256(footerBytes); !bytes.Equal(sum[:], trailer[4:4+blake2b.Size256]) {
		return corrupt(cf.path, "footer checksum mismatch")
	}
	if err := gob.NewDecoder(bytes.NewReader(footerBytes)).Decode(&cf.footer); err != nil {
		return corrupt(cf.path, "decode footer: %v", err)
	}

	for _, b := range cf.footer.Columns {
		if b.Offset < int64(headerSize) || b.Length < 0 || b.Offset+b.Length > footerStart {
			return corrupt(cf.path, "column %q block out of range", b.Name)
		}
	}
	return nil
}

func (cf *columnarFile) readColumn(b blockInfo) (*Column, error) {
	block := make([]byte, b.Length)
	if _, err := cf.f.ReadAt(block, b.Offset); err != nil {
		return nil, fmt.Errorf("read column %q: %w", b.Name, err)
	}
	if sum := blake2b.Sum256(block); sum != b.Sum {
		return nil, corrupt(cf.path, "column %q checksum mismatch", b.Name)
	}

	if cf.compressed {
		decoded, err := snappy.Decode(nil, block)
		if err != nil {
			return nil, corrupt(cf.path, "decompress column %q: %v", b.Name, err)
		}
		block = decoded
	}

	var col Column
	if err := gob.NewDecoder(bytes.NewReader(block)).Decode(&col); err != nil {
		return nil, corrupt(cf.path, "decode column %q: %v", b.Name, err)
	}
	if col.Name != b.Name || col.Kind != b.Kind {
		return nil, corrupt(cf.path, "column %q does not match its footer entry", b.Name)
	}
	if col.Len() != cf.footer.Rows {
		return nil, corrupt(cf.path, "column %q has %d rows, expected %d", b.Name, col.Len(), cf.footer.Rows)
	}
	return &col, nil
}

// InspectColumnar reads the schema and metadata of a columnar file.
func InspectColumnar(path string) (*Info, error) {
	cf, err := openColumnar(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cf.Close() }()

	info := &Info{
		Rows:       cf.footer.Rows,
		Compressed: cf.compressed,
		Kinds:      make(map[string]Kind, len(cf.footer.Columns)),
		Meta:       cf.footer.Meta,
	}
	if info.Meta == nil {
		info.Meta = map[string]string{}
	}
	for _, b := range cf.footer.Columns {
		info.Names = append(info.Names, b.Name)
		info.Kinds[b.Name] = b.Kind
	}
	return info, nil
}

// ReadColumnar reads a columnar file. With no names every column is decoded;
// otherwise only the named columns are, in the order given. A requested
// column that the file lacks is a dataerr.MissingColumnError.
func ReadColumnar(path string, names ...string) (*Frame, error) {
	cf, err := openColumnar(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cf.Close() }()

	blocks := cf.footer.Columns
	if len(names) > 0 {
		byName := make(map[string]blockInfo, len(blocks))
		for _, b := range blocks {
			byName[b.Name] = b
		}
		blocks = make([]blockInfo, 0, len(names))
		for _, name := range names {
			b, ok := byName[name]
			if !ok {
				return nil, dataerr.MissingColumn(path, name)
			}
			blocks = append(blocks, b)
		}
	}

	frame := NewFrame()
	for k, v := range cf.footer.Meta {
		frame.Meta[k] = v
	}
	for _, b := range blocks {
		col, err := cf.readColumn(b)
		if err != nil {
			return nil, err
		}
		if err := frame.Add(col); err != nil {
			return nil, corrupt(path, "%v", err)
		}
	}
	if len(blocks) == 0 {
		frame.rows = cf.footer.Rows
	}
	return frame, nil
}
