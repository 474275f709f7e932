package hfstol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// hfst3Magic opens an hfstol file produced by HFST 3; older files start
// directly with the field block.
var hfst3Magic = []byte("HFST\x00")

// header holds the fixed-size field block at the start of a compiled
// .hfstol lexicon.
type header struct {
	inputSymbols int
	symbols      int
	indexTable   int // number of transition-index entries
	targetTable  int // number of transition-target entries
	states       int
	transitions  int

	weighted           bool
	deterministic      bool
	inputDeterministic bool
	minimized          bool
	cyclic             bool
}

// readHeader reads the header from the start of an .hfstol file. An HFST 3
// preamble, when present, carries its own length and is skipped; the 56-byte
// field block that follows is shared by both formats.
func readHeader(r io.Reader) (*header, error) {
	lead := make([]byte, 5)
	if _, err := io.ReadFull(r, lead); err != nil {
		return nil, fmt.Errorf("reading hfstol header: %w", err)
	}

	block := make([]byte, 56)
	if bytes.Equal(lead, hfst3Magic) {
		ext := make([]byte, 3)
		if _, err := io.ReadFull(r, ext); err != nil {
			return nil, fmt.Errorf("reading hfst3 preamble: %w", err)
		}
		remaining := int(binary.LittleEndian.Uint16(ext[:2]))
		if _, err := io.CopyN(io.Discard, r, int64(remaining)); err != nil {
			return nil, fmt.Errorf("skipping hfst3 preamble: %w", err)
		}
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, fmt.Errorf("reading hfstol header: %w", err)
		}
	} else {
		copy(block, lead)
		if _, err := io.ReadFull(r, block[5:]); err != nil {
			return nil, fmt.Errorf("reading hfstol header: %w", err)
		}
	}

	boolAt := func(off int) bool {
		return binary.LittleEndian.Uint32(block[off:]) != 0
	}
	h := &header{
		inputSymbols:       int(binary.LittleEndian.Uint16(block[0:])),
		symbols:            int(binary.LittleEndian.Uint16(block[2:])),
		indexTable:         int(binary.LittleEndian.Uint32(block[4:])),
		targetTable:        int(binary.LittleEndian.Uint32(block[8:])),
		states:             int(binary.LittleEndian.Uint32(block[12:])),
		transitions:        int(binary.LittleEndian.Uint32(block[16:])),
		weighted:           boolAt(20),
		deterministic:      boolAt(24),
		inputDeterministic: boolAt(28),
		minimized:          boolAt(32),
		cyclic:             boolAt(36),
	}
	return h, nil
}
