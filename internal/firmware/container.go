// Package firmware parses the BVM firmware container format and Intel HEX
// payloads, and programs the parsed image into an mcuavr.Core's flash and
// SRAM, enforcing the bootloader-region size limit along the way.
package firmware

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ContainerMagic is the fixed "CSNE" magic every BVM container begins with.
const ContainerMagic = 0x43534E45

const (
	sectionFlagIntelHex = 1 << 3
	sectionFlagRaw      = 1 << 4
)

// Sizes of the fixed-layout container header and section-table entries, in
// bytes, matching the field list the protocol documents.
const (
	headerSize        = 24
	sectionEntrySize  = 20
	sectionNameLength = 8
)

// Header is the fixed BVM container header.
type Header struct {
	Magic              uint32
	VersionMajor       uint16
	VersionMinor       uint16
	HeaderSize         uint16
	SectionCount       uint16
	EntryOffset        uint32
	SectionTableOffset uint32
	Flags              uint32
}

// Section is one entry of the container's section table.
type Section struct {
	Name   string
	Offset uint32
	Size   uint32
	Flags  uint32
}

// Container is a fully parsed firmware archive: its header, section table,
// and the resolved ".text" (and optional ".data") payload bytes.
type Container struct {
	Header      Header
	Sections    []Section
	Text        []byte
	TextIsHex   bool
	Data        []byte
	EntryOffset uint32
}

var (
	ErrTruncated    = errors.New("firmware: buffer shorter than container header")
	ErrBadMagic     = errors.New("firmware: container magic mismatch")
	ErrSectionTable = errors.New("firmware: section table extends past buffer")
	ErrSectionSlice = errors.New("firmware: section payload extends past buffer")
	ErrMissingText  = errors.New("firmware: container has no \".text\" section")
)

// Parse validates and decodes a BVM container's header, section table, and
// the ".text"/".data" section payloads it names.
func Parse(buf []byte) (*Container, error) {
	if len(buf) < headerSize {
		return nil, ErrTruncated
	}
	h := Header{
		Magic:              binary.LittleEndian.Uint32(buf[0:4]),
		VersionMajor:       binary.LittleEndian.Uint16(buf[4:6]),
		VersionMinor:       binary.LittleEndian.Uint16(buf[6:8]),
		HeaderSize:         binary.LittleEndian.Uint16(buf[8:10]),
		SectionCount:       binary.LittleEndian.Uint16(buf[10:12]),
		EntryOffset:        binary.LittleEndian.Uint32(buf[12:16]),
		SectionTableOffset: binary.LittleEndian.Uint32(buf[16:20]),
		Flags:              binary.LittleEndian.Uint32(buf[20:24]),
	}
	if h.Magic != ContainerMagic {
		return nil, ErrBadMagic
	}

	tableEnd := uint64(h.SectionTableOffset) + uint64(h.SectionCount)*sectionEntrySize
	if tableEnd > uint64(len(buf)) {
		return nil, ErrSectionTable
	}

	sections := make([]Section, 0, h.SectionCount)
	for i := 0; i < int(h.SectionCount); i++ {
		base := int(h.SectionTableOffset) + i*sectionEntrySize
		raw := buf[base : base+sectionEntrySize]
		name := trimName(raw[0:sectionNameLength])
		offset := binary.LittleEndian.Uint32(raw[8:12])
		size := binary.LittleEndian.Uint32(raw[12:16])
		flags := binary.LittleEndian.Uint32(raw[16:20])
		sections = append(sections, Section{Name: name, Offset: offset, Size: size, Flags: flags})
	}

	c := &Container{Header: h, Sections: sections, EntryOffset: h.EntryOffset}

	var textSection *Section
	for i := range sections {
		if sections[i].Name == ".text" {
			textSection = &sections[i]
			break
		}
	}
	if textSection == nil {
		return nil, ErrMissingText
	}
	textEnd := uint64(textSection.Offset) + uint64(textSection.Size)
	if textEnd > uint64(len(buf)) {
		return nil, ErrSectionSlice
	}
	c.Text = buf[textSection.Offset : textSection.Offset+textSection.Size]
	c.TextIsHex = textSection.Flags&sectionFlagIntelHex != 0
	if !c.TextIsHex && textSection.Flags&sectionFlagRaw == 0 {
		return nil, fmt.Errorf("firmware: \".text\" section has neither raw nor hex flag set")
	}

	for i := range sections {
		if sections[i].Name == ".data" {
			d := sections[i]
			dEnd := uint64(d.Offset) + uint64(d.Size)
			if dEnd > uint64(len(buf)) {
				return nil, ErrSectionSlice
			}
			c.Data = buf[d.Offset : d.Offset+d.Size]
		}
	}

	return c, nil
}

func trimName(b []byte) string {
	n := len(b)
	for n > 0 && b[n-1] == 0 {
		n--
	}
	return string(b[:n])
}
