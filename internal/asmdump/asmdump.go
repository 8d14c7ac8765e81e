// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asmdump implements the optional reference dump spec.md §6's
// "Exit conditions" allows alongside the binary output: every resolved
// label and its final address. Grounded on asm/sourcemap.go's SourceMap,
// reusing its varint delta-encoding scheme verbatim but repurposed from
// line-number mapping to label/address mapping, since this core has no
// source-line concept without a lexer (spec.md §1 excludes one).
package asmdump

import (
	"bufio"
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"io"
	"slices"
)

const (
	signature    = "SDMP"
	versionMajor = 1
	versionMinor = 0
)

// Encoding flags, identical layout to asm/sourcemap.go's.
const (
	continued byte = 1 << 7
	negative  byte = 1 << 6
)

// Entry is one resolved reference: a name (possibly a "parent.local"
// qualified name) and its final address.
type Entry struct {
	Name    string
	Address int
}

// Dump is the full set of resolved references produced by one assembly,
// sorted by address on write.
type Dump struct {
	Entries []Entry
}

// Add appends a reference, in whatever order the caller discovers it;
// WriteTo sorts before encoding.
func (d *Dump) Add(name string, addr int) {
	d.Entries = append(d.Entries, Entry{Name: name, Address: addr})
}

// WriteTo writes the dump in asmdump's binary format: a 6-byte header
// (signature, version), a 4-byte little-endian entry count, then each
// entry as a zero-terminated
// name followed by a signed varint address delta from the previous
// entry's address.
func (d *Dump) WriteTo(w io.Writer) (n int64, err error) {
	entries := make([]Entry, len(d.Entries))
	copy(entries, d.Entries)
	slices.SortFunc(entries, func(a, b Entry) int { return cmp.Compare(a.Address, b.Address) })

	ww := bufio.NewWriter(w)
	var hdr [6]byte
	copy(hdr[:4], []byte(signature))
	hdr[4] = versionMajor
	hdr[5] = versionMinor
	nn, err := ww.Write(hdr[:])
	n += int64(nn)
	if err != nil {
		return n, err
	}

	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(entries)))
	nn, err = ww.Write(countBuf[:])
	n += int64(nn)
	if err != nil {
		return n, err
	}

	prevAddr := 0
	for _, e := range entries {
		nn, err = ww.WriteString(e.Name)
		n += int64(nn)
		if err != nil {
			return n, err
		}
		if err = ww.WriteByte(0); err != nil {
			return n, err
		}
		n++

		nn, err = encodeDelta(ww, e.Address-prevAddr)
		n += int64(nn)
		if err != nil {
			return n, err
		}
		prevAddr = e.Address
	}

	return n, ww.Flush()
}

// ReadFrom reads a dump written by WriteTo.
func (d *Dump) ReadFrom(r io.Reader) (n int64, err error) {
	rr := bufio.NewReader(r)

	hdr := make([]byte, 6)
	nn, err := io.ReadFull(rr, hdr)
	n += int64(nn)
	if err != nil {
		return n, err
	}
	if !bytes.Equal(hdr[0:4], []byte(signature)) {
		return n, errors.New("asmdump: invalid signature")
	}
	if hdr[4] != versionMajor || hdr[5] != versionMinor {
		return n, errors.New("asmdump: unsupported version")
	}

	countBuf := make([]byte, 4)
	nn, err = io.ReadFull(rr, countBuf)
	n += int64(nn)
	if err != nil {
		return n, err
	}
	count := int(binary.LittleEndian.Uint32(countBuf))

	d.Entries = make([]Entry, 0, count)
	prevAddr := 0
	for i := 0; i < count; i++ {
		name, err := rr.ReadString(0)
		n += int64(len(name))
		if err != nil {
			return n, err
		}
		name = name[:len(name)-1]

		delta, nn, err := decodeDelta(rr)
		n += int64(nn)
		if err != nil {
			return n, err
		}
		addr := prevAddr + delta
		d.Entries = append(d.Entries, Entry{Name: name, Address: addr})
		prevAddr = addr
	}
	return n, nil
}

// Find returns the entry at the given address, if any.
func (d *Dump) Find(addr int) (string, bool) {
	for _, e := range d.Entries {
		if e.Address == addr {
			return e.Name, true
		}
	}
	return "", false
}

func encodeDelta(w *bufio.Writer, v int) (n int, err error) {
	var b byte
	if v < 0 {
		b |= negative
		v = -v
	}
	if v >= 0x40 {
		b |= continued
	}
	b |= byte(v) & 0x3f
	if err = w.WriteByte(b); err != nil {
		return n, err
	}
	n++
	v >>= 6

	for v != 0 {
		var c byte
		if v >= 0x80 {
			c |= continued
		}
		c |= byte(v) & 0x7f
		if err = w.WriteByte(c); err != nil {
			return n, err
		}
		n++
		v >>= 7
	}
	return n, nil
}

func decodeDelta(r *bufio.Reader) (value int, n int, err error) {
	var b byte
	b, err = r.ReadByte()
	if err != nil {
		return 0, n, err
	}
	n++

	value = int(b & 0x3f)
	neg := b&negative != 0
	cont := b&continued != 0

	if cont {
		var shift uint = 6
		for {
			var c byte
			c, err = r.ReadByte()
			if err != nil {
				return 0, n, err
			}
			n++
			value |= int(c&0x7f) << shift
			shift += 7
			if c&continued == 0 {
				break
			}
		}
	}
	if neg {
		value = -value
	}
	return value, n, nil
}
