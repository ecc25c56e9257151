package exifmeta

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/stretchr/testify/require"
)

const (
	typeASCII    = 2
	typeShort    = 3
	typeLong     = 4
	typeRational = 5
)

type tiffEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func ascii(tag uint16, s string) tiffEntry {
	b := append([]byte(s), 0)
	return tiffEntry{tag: tag, typ: typeASCII, count: uint32(len(b)), data: b}
}

func rat(tag uint16, num, den uint32) tiffEntry {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b, num)
	binary.LittleEndian.PutUint32(b[4:], den)
	return tiffEntry{tag: tag, typ: typeRational, count: 1, data: b}
}

func short(tag uint16, v uint16) tiffEntry {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return tiffEntry{tag: tag, typ: typeShort, count: 1, data: b}
}

// buildTIFF writes a little-endian TIFF with IFD0 and an optional EXIF sub-IFD.
func buildTIFF(ifd0, sub []tiffEntry) []byte {
	ifdSize := func(n int) uint32 { return uint32(2 + 12*n + 4) }

	n0 := len(ifd0)
	if len(sub) > 0 {
		n0++
	}
	ifd0Off := uint32(8)
	subOff := ifd0Off + ifdSize(n0)
	dataOff := subOff
	if len(sub) > 0 {
		dataOff += ifdSize(len(sub))
	}

	var data bytes.Buffer
	writeIFD := func(out *bytes.Buffer, entries []tiffEntry) {
		_ = binary.Write(out, binary.LittleEndian, uint16(len(entries)))
		for _, e := range entries {
			_ = binary.Write(out, binary.LittleEndian, e.tag)
			_ = binary.Write(out, binary.LittleEndian, e.typ)
			_ = binary.Write(out, binary.LittleEndian, e.count)
			if len(e.data) <= 4 {
				v := make([]byte, 4)
				copy(v, e.data)
				out.Write(v)
				continue
			}
			_ = binary.Write(out, binary.LittleEndian, dataOff+uint32(data.Len()))
			data.Write(e.data)
			if data.Len()%2 == 1 {
				data.WriteByte(0)
			}
		}
		_ = binary.Write(out, binary.LittleEndian, uint32(0))
	}

	var out bytes.Buffer
	out.WriteString("II")
	_ = binary.Write(&out, binary.LittleEndian, uint16(42))
	_ = binary.Write(&out, binary.LittleEndian, ifd0Off)

	entries := ifd0
	if len(sub) > 0 {
		ptr := make([]byte, 4)
		binary.LittleEndian.PutUint32(ptr, subOff)
		entries = append(append([]tiffEntry{}, ifd0...), tiffEntry{tag: 0x8769, typ: typeLong, count: 1, data: ptr})
	}
	writeIFD(&out, entries)
	if len(sub) > 0 {
		writeIFD(&out, sub)
	}
	out.Write(data.Bytes())

	return out.Bytes()
}

func TestExtract(t *testing.T) {
	blob := buildTIFF(
		[]tiffEntry{ascii(0x010F, "Canon"), ascii(0x0110, "Canon EOS R5")},
		[]tiffEntry{
			rat(0x829A, 1, 200), // ExposureTime
			rat(0x829D, 18, 10), // FNumber
			short(0x8827, 400),  // ISOSpeedRatings
			rat(0x920A, 50, 1),  // FocalLength
			ascii(0xA434, "RF24-70mm F2.8 L IS USM"),
		},
	)

	rec, err := Extract(bytes.NewReader(blob))
	require.NoError(t, err)
	require.Equal(t, model.MetadataRecord{
		Make:         "Canon",
		Model:        "Canon EOS R5",
		LensModel:    "RF24-70mm F2.8 L IS USM",
		FocalLength:  "50",
		FNumber:      "1.8",
		ExposureTime: "200",
		ISO:          "400",
	}, rec)
}

func TestExtract_PartialAndLongExposure(t *testing.T) {
	blob := buildTIFF(
		[]tiffEntry{ascii(0x010F, "SONY")},
		[]tiffEntry{rat(0x829A, 2, 1)},
	)

	rec, err := Extract(bytes.NewReader(blob))
	require.NoError(t, err)
	require.Equal(t, "SONY", rec.Make)
	require.Empty(t, rec.Model)
	require.Empty(t, rec.ExposureTime)
}

func TestExtract_ExposureBoundary(t *testing.T) {
	tests := []struct {
		name     string
		num, den uint32
		want     string
	}{
		{name: "one second", num: 1, den: 1, want: "1"},
		{name: "just over a second", num: 13, den: 10, want: ""},
		{name: "fraction rounds down", num: 10, den: 25, want: "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := buildTIFF([]tiffEntry{ascii(0x010F, "NIKON")}, []tiffEntry{rat(0x829A, tt.num, tt.den)})
			rec, err := Extract(bytes.NewReader(blob))
			require.NoError(t, err)
			require.Equal(t, tt.want, rec.ExposureTime)
		})
	}
}

func TestExtract_NoMetadata(t *testing.T) {
	_, err := Extract(bytes.NewReader([]byte("definitely not an image")))
	require.ErrorIs(t, err, model.ErrNoMetadata)

	_, err = Extract(bytes.NewReader(buildTIFF([]tiffEntry{ascii(0x0131, "editor")}, nil)))
	require.ErrorIs(t, err, model.ErrNoMetadata)
}
