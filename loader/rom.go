package loader

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
)

// Memory map of the images the loader places.
const (
	// ROMBase is where Game Pak ROM is mapped.
	ROMBase uint32 = 0x08000000
	// MaxROMSize is the size of the Game Pak ROM window.
	MaxROMSize = 32 * 1024 * 1024
	// BIOSSize is the size of the system ROM.
	BIOSSize = 16 * 1024
)

// romExtensions are the file names picked out of archives, in order of
// preference.
var romExtensions = []string{".gba", ".elf", ".bin", ".mb"}

// Header is the cartridge header at the start of a ROM image.
type Header struct {
	// Title is the game title, up to 12 characters.
	Title string
	// GameCode is the four character product code.
	GameCode string
	// MakerCode is the two character publisher code.
	MakerCode string
	// Version is the software version.
	Version uint8
	// Checksum is the stored complement check byte.
	Checksum uint8
}

const headerSize = 0xC0

// ParseHeader reads the cartridge header of a ROM image.
func ParseHeader(rom []byte) (Header, error) {
	if len(rom) < headerSize {
		return Header{}, fmt.Errorf("ROM is %d bytes, too short for a header", len(rom))
	}

	return Header{
		Title:     trimField(rom[0xA0:0xAC]),
		GameCode:  trimField(rom[0xAC:0xB0]),
		MakerCode: trimField(rom[0xB0:0xB2]),
		Version:   rom[0xBC],
		Checksum:  rom[0xBD],
	}, nil
}

// HeaderChecksum computes the complement check over bytes 0xA0-0xBC.
func HeaderChecksum(rom []byte) uint8 {
	var chk uint8
	for _, b := range rom[0xA0:0xBD] {
		chk -= b
	}
	return chk - 0x19
}

// Valid reports whether the stored checksum matches the header of rom.
func (h Header) Valid(rom []byte) bool {
	return len(rom) >= headerSize && HeaderChecksum(rom) == h.Checksum
}

func trimField(b []byte) string {
	return strings.TrimRight(string(b), "\x00 ")
}

// readImage returns the contents of a file, decompressing it when the
// extension names an archive format.
func readImage(name string, data []byte) ([]byte, error) {
	var (
		r   io.Reader
		err error
	)

	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz":
		r, err = gzip.NewReader(bytes.NewReader(data))
	case ".zip":
		r, err = openZip(data)
	case ".7z":
		r, err = open7z(data)
	default:
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", name, err)
	}
	if c, ok := r.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	out, err := io.ReadAll(io.LimitReader(r, MaxROMSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", name, err)
	}
	return out, nil
}

// pickEntry returns the index of the archive entry to load.
func pickEntry(names []string) (int, error) {
	for _, ext := range romExtensions {
		for i, n := range names {
			if strings.EqualFold(filepath.Ext(n), ext) {
				return i, nil
			}
		}
	}
	for i, n := range names {
		if !strings.HasSuffix(n, "/") {
			return i, nil
		}
	}
	return 0, fmt.Errorf("archive holds no files")
}

func openZip(data []byte) (io.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	i, err := pickEntry(names)
	if err != nil {
		return nil, err
	}
	return zr.File[i].Open()
}

func open7z(data []byte) (io.Reader, error) {
	sr, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	names := make([]string, len(sr.File))
	for i, f := range sr.File {
		names[i] = f.Name
	}
	i, err := pickEntry(names)
	if err != nil {
		return nil, err
	}
	return sr.File[i].Open()
}
