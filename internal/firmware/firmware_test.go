package firmware

import (
	"encoding/binary"
	"testing"

	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/mcuavr"
)

func buildContainer(t *testing.T, text []byte, isHex bool, data []byte) []byte {
	t.Helper()
	flags := uint32(sectionFlagRaw)
	if isHex {
		flags = sectionFlagIntelHex
	}

	sections := []Section{{Name: ".text", Flags: flags}}
	if data != nil {
		sections = append(sections, Section{Name: ".data"})
	}

	tableOffset := uint32(headerSize)
	payloadOffset := tableOffset + uint32(len(sections))*sectionEntrySize
	sections[0].Offset = payloadOffset
	sections[0].Size = uint32(len(text))
	offset := payloadOffset + uint32(len(text))
	if data != nil {
		sections[1].Offset = offset
		sections[1].Size = uint32(len(data))
		offset += uint32(len(data))
	}

	buf := make([]byte, offset)
	binary.LittleEndian.PutUint32(buf[0:4], ContainerMagic)
	binary.LittleEndian.PutUint16(buf[4:6], 1)
	binary.LittleEndian.PutUint16(buf[6:8], 0)
	binary.LittleEndian.PutUint16(buf[8:10], headerSize)
	binary.LittleEndian.PutUint16(buf[10:12], uint16(len(sections)))
	binary.LittleEndian.PutUint32(buf[12:16], 0)
	binary.LittleEndian.PutUint32(buf[16:20], tableOffset)
	binary.LittleEndian.PutUint32(buf[20:24], 0)

	for i, s := range sections {
		base := int(tableOffset) + i*sectionEntrySize
		copy(buf[base:base+8], s.Name)
		binary.LittleEndian.PutUint32(buf[base+8:base+12], s.Offset)
		binary.LittleEndian.PutUint32(buf[base+12:base+16], s.Size)
		binary.LittleEndian.PutUint32(buf[base+16:base+20], s.Flags)
	}
	copy(buf[sections[0].Offset:], text)
	if data != nil {
		copy(buf[sections[1].Offset:], data)
	}
	return buf
}

func TestParseRawContainer(t *testing.T) {
	buf := buildContainer(t, []byte{0x0C, 0x94, 0x00, 0x00}, false, nil)
	c, err := Parse(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Text) != 4 {
		t.Fatalf("expected 4 text bytes, got %d", len(c.Text))
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	buf := buildContainer(t, []byte{1, 2, 3, 4}, false, nil)
	buf[0] = 0
	if _, err := Parse(buf); err != ErrBadMagic {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

func TestDecodeIntelHexValid(t *testing.T) {
	// :02000000AABB99
	records, err := DecodeIntelHex([]byte(":02000000AABB99\n:00000001FF\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Address != 0 {
		t.Fatalf("unexpected records: %+v", records)
	}
	if len(records[0].Data) != 2 || records[0].Data[0] != 0xAA || records[0].Data[1] != 0xBB {
		t.Fatalf("unexpected data: %v", records[0].Data)
	}
}

func TestDecodeIntelHexBadChecksum(t *testing.T) {
	_, err := DecodeIntelHex([]byte(":02000000AABB00\n"))
	if err == nil {
		t.Fatalf("expected checksum error")
	}
}

func TestLoadRawContainerIntoCore(t *testing.T) {
	buf := buildContainer(t, []byte{0x0C, 0x94, 0x00, 0x00}, false, []byte{0x01, 0x02})
	core := mcuavr.NewCore(mcuavr.DefaultBoardProfile())
	result, err := Load(core, buf, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FlashBytesWritten != 4 || result.SRAMBytesWritten != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if core.Flash[0] != 0x0C || core.Flash[1] != 0x94 {
		t.Fatalf("flash not written correctly")
	}
	if core.SRAM[0] != 0x01 || core.SRAM[1] != 0x02 {
		t.Fatalf("sram not written correctly")
	}
}

func TestLoadRejectsOversizedImage(t *testing.T) {
	core := mcuavr.NewCore(mcuavr.DefaultBoardProfile())
	big := make([]byte, core.Profile.FlashBytes) // entire flash, overlapping bootloader region
	buf := buildContainer(t, big, false, nil)
	if _, err := Load(core, buf, ""); err == nil {
		t.Fatalf("expected oversized image rejection")
	}
}
