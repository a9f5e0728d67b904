package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/encoding/korean"
)

// Write packs files into a GRF 0x200 archive. Names are stored with
// backslashes and EUC-KR encoded, entries in sorted order.
func Write(w io.Writer, files map[string][]byte) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	enc := korean.EUCKR.NewEncoder()
	var body, table bytes.Buffer
	for _, name := range names {
		packed, err := deflate(files[name])
		if err != nil {
			return err
		}
		aligned := (len(packed) + 7) &^ 7

		raw, err := enc.String(strings.ReplaceAll(name, "/", "\\"))
		if err != nil {
			return err
		}
		table.WriteString(raw)
		table.WriteByte(0)
		binary.Write(&table, binary.LittleEndian, struct {
			Compressed, Aligned, Uncompressed uint32
			Flags                             uint8
			Offset                            uint32
		}{uint32(len(packed)), uint32(aligned), uint32(len(files[name])), flagFile, uint32(body.Len())})

		body.Write(packed)
		body.Write(make([]byte, aligned-len(packed)))
	}

	packedTable, err := deflate(table.Bytes())
	if err != nil {
		return err
	}

	h := Header{
		TableOffset: uint32(body.Len()),
		FileCount:   uint32(len(names)) + 7,
		Version:     version200,
	}
	copy(h.Magic[:], grfMagic)

	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return err
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, [2]uint32{uint32(len(packedTable)), uint32(table.Len())}); err != nil {
		return err
	}
	_, err = w.Write(packedTable)
	return err
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
