// Package fat implements a read-only FAT12/16/32 driver over a RAM-resident
// disk image, grounded on the BIOS Parameter Block and directory-entry
// layouts shared by gofat and FAT32-SecRm in the retrieval pack.
package fat

import (
	"encoding/binary"
	"fmt"
)

// Type names one of the three on-disk FAT flavors. Detection follows the
// canonical cluster-count thresholds, not the BS_FilSysType string (which is
// informational only and frequently wrong).
type Type uint8

const (
	FAT12 Type = iota
	FAT16
	FAT32
)

func (t Type) String() string {
	switch t {
	case FAT12:
		return "FAT12"
	case FAT16:
		return "FAT16"
	case FAT32:
		return "FAT32"
	default:
		return "FAT?"
	}
}

// BPB holds the BIOS Parameter Block fields the driver actually consumes.
// Unused reserved ranges of the boot sector are not modeled.
type BPB struct {
	BytesPerSector      uint16
	SectorsPerCluster   uint8
	ReservedSectorCount uint16
	NumFATs             uint8
	RootEntryCount      uint16
	TotalSectors16      uint16
	FATSize16           uint16
	TotalSectors32      uint32
	FATSize32           uint32
	RootCluster         uint32 // FAT32 only
}

const bootSectorSize = 512

// parseBPB reads the fixed-offset BPB fields out of the first sector of a
// disk image.
func parseBPB(image []byte) (*BPB, error) {
	if len(image) < bootSectorSize {
		return nil, fmt.Errorf("fat: image too small for a boot sector (%d bytes)", len(image))
	}

	b := &BPB{
		BytesPerSector:      binary.LittleEndian.Uint16(image[11:13]),
		SectorsPerCluster:   image[13],
		ReservedSectorCount: binary.LittleEndian.Uint16(image[14:16]),
		NumFATs:             image[16],
		RootEntryCount:      binary.LittleEndian.Uint16(image[17:19]),
		TotalSectors16:      binary.LittleEndian.Uint16(image[19:21]),
		FATSize16:           binary.LittleEndian.Uint16(image[22:24]),
		TotalSectors32:      binary.LittleEndian.Uint32(image[32:36]),
		FATSize32:           binary.LittleEndian.Uint32(image[36:40]),
		RootCluster:         binary.LittleEndian.Uint32(image[44:48]),
	}

	if b.BytesPerSector == 0 || b.SectorsPerCluster == 0 {
		return nil, fmt.Errorf("fat: degenerate BPB (bytes/sector=%d, sectors/cluster=%d)", b.BytesPerSector, b.SectorsPerCluster)
	}

	return b, nil
}

// fatSize returns the sectors-per-FAT value regardless of which of the two
// on-disk fields carries it.
func (b *BPB) fatSize() uint32 {
	if b.FATSize16 != 0 {
		return uint32(b.FATSize16)
	}

	return b.FATSize32
}

// totalSectors returns the sector count regardless of which of the two
// on-disk fields carries it.
func (b *BPB) totalSectors() uint32 {
	if b.TotalSectors16 != 0 {
		return uint32(b.TotalSectors16)
	}

	return b.TotalSectors32
}

// rootDirSectors is nonzero only for FAT12/16, where the root directory is a
// flat region ahead of the data area rather than an ordinary cluster chain.
func (b *BPB) rootDirSectors() uint32 {
	rootBytes := uint32(b.RootEntryCount) * 32
	return (rootBytes + uint32(b.BytesPerSector) - 1) / uint32(b.BytesPerSector)
}

// detectType applies the standard cluster-count thresholds: fewer than 4085
// data clusters is FAT12, fewer than 65525 is FAT16, otherwise FAT32.
func detectType(b *BPB) Type {
	fatSz := b.fatSize()
	dataSectors := b.totalSectors() - (uint32(b.ReservedSectorCount) + uint32(b.NumFATs)*fatSz + b.rootDirSectors())
	clusterCount := dataSectors / uint32(b.SectorsPerCluster)

	switch {
	case clusterCount < 4085:
		return FAT12
	case clusterCount < 65525:
		return FAT16
	default:
		return FAT32
	}
}
