// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-shadowshare.
//
// go-shadowshare is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package bmp reads and writes uncompressed 8-bit bitmap files.
//
// Unlike golang.org/x/image/bmp, the decoder keeps the raw header, including
// the reserved fields, and the bytes between the header and the pixel data
// (normally the color table), so an image can be rewritten with only its
// pixels or reserved fields changed.
package bmp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// HeaderSize is the size of the file header plus the BITMAPINFOHEADER.
	HeaderSize = 54

	// InfoHeaderSize is the size of a BITMAPINFOHEADER.
	InfoHeaderSize = 40

	// BitsPerPixel is the only supported pixel depth.
	BitsPerPixel = 8

	// CompressionNone is BI_RGB.
	CompressionNone = 0

	// MaxPixels bounds width*height accepted by Decode.
	MaxPixels = 1 << 26

	// MaxExtraHeader bounds the bytes between the 54-byte header and the
	// pixel data: extended info headers plus the color table.
	MaxExtraHeader = 1 << 16

	rowAlignment = 4
)

var signature = [2]byte{'B', 'M'}

var (
	// ErrInvalidSignature is returned when the data does not start with "BM".
	ErrInvalidSignature = errors.New("bmp: invalid signature")

	// ErrUnsupportedFormat is returned for anything but uncompressed 8 bpp.
	ErrUnsupportedFormat = errors.New("bmp: unsupported format")

	// ErrInvalidHeader is returned for inconsistent header fields.
	ErrInvalidHeader = errors.New("bmp: invalid header")
)

// Header is the 54-byte bitmap file header and info header. All fields are
// little-endian on disk.
type Header struct {
	Signature       [2]byte
	FileSize        uint32
	Reserved1       uint16
	Reserved2       uint16
	DataOffset      uint32
	InfoSize        uint32
	Width           int32
	Height          int32
	Planes          uint16
	BitsPerPixel    uint16
	Compression     uint32
	ImageSize       uint32
	XPixelsPerMeter int32
	YPixelsPerMeter int32
	ColorsUsed      uint32
	ColorsImportant uint32
}

// ParticipantID returns the identifier stored in Reserved1.
func (h *Header) ParticipantID() uint16 {
	return h.Reserved1
}

// SetParticipantID stores id in Reserved1.
func (h *Header) SetParticipantID(id uint16) {
	h.Reserved1 = id
}

// Rows returns the absolute height.
func (h *Header) Rows() int {
	if h.Height < 0 {
		return int(-int64(h.Height))
	}
	return int(h.Height)
}

// Columns returns the width.
func (h *Header) Columns() int {
	return int(h.Width)
}

// TopDown reports whether rows are stored top row first.
func (h *Header) TopDown() bool {
	return h.Height < 0
}

func (h *Header) stride() int {
	return (h.Columns()*BitsPerPixel/8 + rowAlignment - 1) &^ (rowAlignment - 1)
}

// Image is a decoded bitmap. Pixels holds one byte per pixel without row
// padding, in stored row order: bottom row first unless the header is
// top-down.
type Image struct {
	Header  Header
	Palette []byte
	Pixels  []byte
}

// New returns a width x height bottom-up image with a 256-level gray palette.
func New(width, height int) *Image {
	palette := GrayPalette()
	img := &Image{
		Header: Header{
			Signature:    signature,
			InfoSize:     InfoHeaderSize,
			Width:        int32(width),
			Height:       int32(height),
			Planes:       1,
			BitsPerPixel: BitsPerPixel,
			Compression:  CompressionNone,
			ColorsUsed:   256,
		},
		Palette: palette,
		Pixels:  make([]byte, width*height),
	}
	img.fixSizes()
	return img
}

// GrayPalette returns a 256-entry BGRA color table mapping index i to gray i.
func GrayPalette() []byte {
	p := make([]byte, 256*4)
	for i := 0; i < 256; i++ {
		p[4*i] = byte(i)
		p[4*i+1] = byte(i)
		p[4*i+2] = byte(i)
	}
	return p
}

// Clone returns a deep copy of img.
func (img *Image) Clone() *Image {
	c := &Image{
		Header:  img.Header,
		Palette: make([]byte, len(img.Palette)),
		Pixels:  make([]byte, len(img.Pixels)),
	}
	copy(c.Palette, img.Palette)
	copy(c.Pixels, img.Pixels)
	return c
}

// Width returns the image width in pixels.
func (img *Image) Width() int {
	return img.Header.Columns()
}

// Height returns the image height in pixels.
func (img *Image) Height() int {
	return img.Header.Rows()
}

func (img *Image) fixSizes() {
	h := &img.Header
	h.DataOffset = uint32(HeaderSize + len(img.Palette))
	h.ImageSize = uint32(h.stride() * h.Rows())
	h.FileSize = h.DataOffset + h.ImageSize
}

// Decode reads an uncompressed 8 bpp bitmap from r.
func Decode(r io.Reader) (*Image, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("bmp: read header: %w", err)
	}
	if h.Signature != signature {
		return nil, ErrInvalidSignature
	}
	if h.BitsPerPixel != BitsPerPixel || h.Compression != CompressionNone {
		return nil, fmt.Errorf("%w: %d bpp, compression %d", ErrUnsupportedFormat, h.BitsPerPixel, h.Compression)
	}
	if h.Width <= 0 || h.Height == 0 || h.Height == math.MinInt32 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidHeader, h.Width, h.Height)
	}
	if int64(h.Columns())*int64(h.Rows()) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidHeader, h.Width, h.Height, MaxPixels)
	}
	if h.DataOffset < HeaderSize || h.DataOffset-HeaderSize > MaxExtraHeader {
		return nil, fmt.Errorf("%w: pixel data offset %d", ErrInvalidHeader, h.DataOffset)
	}

	palette := make([]byte, h.DataOffset-HeaderSize)
	if _, err := io.ReadFull(r, palette); err != nil {
		return nil, fmt.Errorf("bmp: read palette: %w", err)
	}

	width, rows, stride := h.Columns(), h.Rows(), h.stride()
	pixels := make([]byte, width*rows)
	row := make([]byte, stride)
	for y := 0; y < rows; y++ {
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, fmt.Errorf("bmp: read row %d: %w", y, err)
		}
		copy(pixels[y*width:], row[:width])
	}

	return &Image{Header: h, Palette: palette, Pixels: pixels}, nil
}

// DecodeBytes decodes a bitmap held in memory.
func DecodeBytes(data []byte) (*Image, error) {
	return Decode(bytes.NewReader(data))
}

// Encode writes img to w. The size and offset header fields are recomputed
// from the palette and dimensions; all other fields are written as is.
func Encode(w io.Writer, img *Image) error {
	width, rows := img.Width(), img.Height()
	if width <= 0 || rows <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidHeader, width, rows)
	}
	if len(img.Pixels) != width*rows {
		return fmt.Errorf("%w: %d pixels for %dx%d", ErrInvalidHeader, len(img.Pixels), width, rows)
	}
	if img.Header.BitsPerPixel != BitsPerPixel || img.Header.Compression != CompressionNone {
		return fmt.Errorf("%w: %d bpp, compression %d",
			ErrUnsupportedFormat, img.Header.BitsPerPixel, img.Header.Compression)
	}

	out := *img
	out.Header.Signature = signature
	out.fixSizes()

	if err := binary.Write(w, binary.LittleEndian, &out.Header); err != nil {
		return fmt.Errorf("bmp: write header: %w", err)
	}
	if _, err := w.Write(img.Palette); err != nil {
		return fmt.Errorf("bmp: write palette: %w", err)
	}

	row := make([]byte, out.Header.stride())
	for y := 0; y < rows; y++ {
		copy(row, img.Pixels[y*width:(y+1)*width])
		if _, err := w.Write(row); err != nil {
			return fmt.Errorf("bmp: write row %d: %w", y, err)
		}
	}
	return nil
}

// EncodeBytes encodes img into a new byte slice.
func EncodeBytes(img *Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
