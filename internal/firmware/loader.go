package firmware

import (
	"errors"
	"fmt"

	"github.com/Kinin-Code-Offical/robotwin-studio-sub000/internal/mcuavr"
)

var (
	ErrOversizedImage  = errors.New("firmware: image exceeds the application flash region")
	ErrUnsupportedMCU  = errors.New("firmware: container targets an unrecognized board profile")
)

// LoadResult reports what a successful Load wrote, for status/log messages.
type LoadResult struct {
	FlashBytesWritten int
	SRAMBytesWritten  int
	EntryPoint        uint32
}

// Load parses a BVM container and programs its ".text" (flash) and
// optional ".data" (SRAM) sections into core, enforcing that the image
// fits below the profile's reserved bootloader region. It resets the core
// first, matching a cold power-up reprogram.
func Load(core *mcuavr.Core, containerBytes []byte, boardID string) (*LoadResult, error) {
	if boardID != "" && mcuavr.LookupBoardProfile(boardID).Family != core.Profile.Family {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMCU, boardID)
	}

	c, err := Parse(containerBytes)
	if err != nil {
		return nil, err
	}

	var flashRecords []HexRecord
	if c.TextIsHex {
		flashRecords, err = DecodeIntelHex(c.Text)
		if err != nil {
			return nil, err
		}
	} else {
		flashRecords = []HexRecord{{Address: 0, Data: c.Text}}
	}

	appLimit := core.Profile.FlashBytes - core.Profile.BootloaderBytes
	written := 0
	for _, rec := range flashRecords {
		end := int(rec.Address) + len(rec.Data)
		if end > appLimit {
			return nil, fmt.Errorf("%w: section ending at byte %d exceeds application limit %d", ErrOversizedImage, end, appLimit)
		}
		written += len(rec.Data)
	}

	core.Reset()
	for _, rec := range flashRecords {
		copy(core.Flash[rec.Address:], rec.Data)
	}
	if len(c.Data) > 0 {
		if len(c.Data) > len(core.SRAM) {
			return nil, fmt.Errorf("%w: .data section larger than SRAM", ErrOversizedImage)
		}
		copy(core.SRAM, c.Data)
	}

	core.PC = uint32(c.EntryOffset / 2)

	return &LoadResult{
		FlashBytesWritten: written,
		SRAMBytesWritten:  len(c.Data),
		EntryPoint:        core.PC,
	}, nil
}
