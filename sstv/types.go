// Package sstv implements a streaming decoder for the PD family of
// Slow-Scan Television modes (PD50/90/120/160/180/240): VIS header
// detection followed by line-group demodulation into RGB pixels.
//
// Grounded on the teacher's audio_extensions/sstv package layout
// (decoder.go orchestrating vis.go/modes.go/video_demod.go) and on
// original_source, the C++ prototype this design is distilled from.
package sstv

import "fmt"

// Pixel is a single decoded RGB sample, 8 bits per channel.
type Pixel struct {
	R, G, B uint8
}

// Family identifies the SSTV mode family a detected VIS code belongs to.
type Family int

const (
	// FamilyUnknown marks a VIS code this decoder has no timing table
	// for — any family other than PD, including ones this decoder
	// simply doesn't support.
	FamilyUnknown Family = iota
	// FamilyPD marks one of the six Wraase PD modes this decoder
	// demodulates.
	FamilyPD
)

func (f Family) String() string {
	switch f {
	case FamilyPD:
		return "PD"
	default:
		return "Unknown"
	}
}

// SSTVMode describes one VIS-addressable SSTV mode: its human name, VIS
// code, and the pixel grid/duration a full transmission occupies.
type SSTVMode struct {
	Name      string
	VISCode   int
	Width     int
	Height    int
	DurationS float64
	Family    Family
}

// PDTimings holds the segment durations of one PD mode's line-group
// structure: Sync, Porch, then four equal-length segments (Y1, R-Y,
// B-Y, Y2).
type PDTimings struct {
	SyncMs    float64
	PorchMs   float64
	SegmentMs float64
}

// VISModeMap is the static table of PD VIS codes this decoder
// recognises, per spec §6. Unlisted VIS codes (including the teacher's
// other 40-odd modes) decode as FamilyUnknown.
var VISModeMap = map[int]SSTVMode{
	95: {Name: "PD120", VISCode: 95, Width: 640, Height: 496, DurationS: 126, Family: FamilyPD},
	93: {Name: "PD50", VISCode: 93, Width: 320, Height: 256, DurationS: 50, Family: FamilyPD},
	99: {Name: "PD90", VISCode: 99, Width: 320, Height: 256, DurationS: 90, Family: FamilyPD},
	98: {Name: "PD160", VISCode: 98, Width: 512, Height: 400, DurationS: 161, Family: FamilyPD},
	96: {Name: "PD180", VISCode: 96, Width: 640, Height: 496, DurationS: 187, Family: FamilyPD},
	97: {Name: "PD240", VISCode: 97, Width: 640, Height: 496, DurationS: 248, Family: FamilyPD},
}

// PDTimingsMap gives the per-mode line-group timing for every supported
// PD VIS code, per spec §6. Sync and porch durations are identical
// across the PD family; only the segment duration varies.
var PDTimingsMap = map[int]PDTimings{
	95: {SyncMs: 20.0, PorchMs: 2.08, SegmentMs: 121.60},
	93: {SyncMs: 20.0, PorchMs: 2.08, SegmentMs: 91.52},
	99: {SyncMs: 20.0, PorchMs: 2.08, SegmentMs: 170.24},
	98: {SyncMs: 20.0, PorchMs: 2.08, SegmentMs: 195.85},
	96: {SyncMs: 20.0, PorchMs: 2.08, SegmentMs: 183.04},
	97: {SyncMs: 20.0, PorchMs: 2.08, SegmentMs: 244.48},
}

// LookupMode resolves a 7-bit decoded VIS code against VISModeMap,
// returning a FamilyUnknown SSTVMode (but with the VIS code populated)
// when the code has no PD entry.
func LookupMode(visCode int) SSTVMode {
	if mode, ok := VISModeMap[visCode]; ok {
		return mode
	}
	return SSTVMode{Name: fmt.Sprintf("VIS-%d", visCode), VISCode: visCode, Family: FamilyUnknown}
}
