// Package pkg provides reusable utilities for clonex.
package pkg

import (
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
)

// archiveMagic opens every clonex archive file.
var archiveMagic = [4]byte{'C', 'L', 'N', 'X'}

// ArchiveVersion is the current container format version.
const ArchiveVersion uint32 = 1

// Header is the fixed-size prefix of an archive file.
type Header struct {
	Magic   [4]byte
	Version uint32
	Seed    uint64
}

// ErrBadArchive reports a file that is not a readable clonex archive.
type ErrBadArchive struct {
	Path   string
	Reason string
}

func (e *ErrBadArchive) Error() string {
	return fmt.Sprintf("archive %s: %s", e.Path, e.Reason)
}

// WriteArchive writes a versioned gob container: the fixed header
// followed by the gob encoding of the payload.
func WriteArchive[T any](path string, seed uint64, payload T) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	header := Header{Magic: archiveMagic, Version: ArchiveVersion, Seed: seed}
	if err := binary.Write(file, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write archive header: %w", err)
	}

	if err := gob.NewEncoder(file).Encode(payload); err != nil {
		slog.Error("failed to encode archive payload", "path", path, "error", err)
		return fmt.Errorf("encode archive payload: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	slog.Debug("archive written", "path", path, "version", ArchiveVersion)

	return nil
}

// ReadArchive validates the header and decodes the payload of an
// archive file.
func ReadArchive[T any](path string) (Header, T, error) {
	var payload T

	file, err := os.Open(path)
	if err != nil {
		return Header{}, payload, fmt.Errorf("open archive: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	var header Header
	if err := binary.Read(file, binary.LittleEndian, &header); err != nil {
		return Header{}, payload, &ErrBadArchive{Path: path, Reason: "truncated header"}
	}
	if header.Magic != archiveMagic {
		return Header{}, payload, &ErrBadArchive{Path: path, Reason: "bad magic"}
	}
	if header.Version != ArchiveVersion {
		return Header{}, payload, &ErrBadArchive{
			Path:   path,
			Reason: fmt.Sprintf("unsupported version %d", header.Version),
		}
	}

	if err := gob.NewDecoder(file).Decode(&payload); err != nil {
		slog.Error("failed to decode archive payload", "path", path, "error", err)
		return Header{}, payload, &ErrBadArchive{Path: path, Reason: "undecodable payload"}
	}

	return header, payload, nil
}
