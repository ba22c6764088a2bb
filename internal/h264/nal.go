// Package h264 parses Annex-B H.264 bitstreams: locating NAL units,
// identifying their type, deciding keyframe boundaries, and converting
// access units to the length-prefixed AVCC layout (the fmp4 package does
// not use this conversion; its mdat samples stay Annex-B). NAL splitting
// and typing for the parameter-set and
// keyframe checks is delegated to mediacommon's h264 codec package, the
// same dependency this codebase's muxer uses for fmp4.Part/fmp4.Init.
package h264

import (
	"bytes"

	mch264 "github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
)

var (
	// Standard Annex-B start codes
	StartCode3 = []byte{0x00, 0x00, 0x01}
	StartCode4 = []byte{0x00, 0x00, 0x00, 0x01}
)

// NALUnitType represents H.264 NAL unit types
type NALUnitType uint8

const (
	NALUnitTypeSlice     NALUnitType = 1
	NALUnitTypeDPA       NALUnitType = 2
	NALUnitTypeDPB       NALUnitType = 3
	NALUnitTypeDPC       NALUnitType = 4
	NALUnitTypeIDR       NALUnitType = 5
	NALUnitTypeSEI       NALUnitType = 6
	NALUnitTypeSPS       NALUnitType = 7
	NALUnitTypePPS       NALUnitType = 8
	NALUnitTypeAUD       NALUnitType = 9
	NALUnitTypeEndSeq    NALUnitType = 10
	NALUnitTypeEndStream NALUnitType = 11
	NALUnitTypeFiller    NALUnitType = 12
)

// GetNALUnitType extracts the NAL unit type from the first byte after start code
func GetNALUnitType(data []byte) (NALUnitType, bool) {
	nalStart := FindStartCode(data)
	if nalStart == -1 || nalStart+4 >= len(data) {
		return 0, false
	}

	// Skip start code and get NAL unit type from first 5 bits
	nalByte := data[nalStart+3] // For 3-byte start code, +4 for 4-byte
	if data[nalStart+1] == 0x00 && data[nalStart+2] == 0x00 && data[nalStart+3] == 0x01 {
		// 4-byte start code
		if nalStart+4 >= len(data) {
			return 0, false
		}
		nalByte = data[nalStart+4]
	}

	return NALUnitType(nalByte & 0x1F), true
}

// FindStartCode locates the position of the first start code in data
func FindStartCode(data []byte) int {
	if pos := bytes.Index(data, StartCode4); pos != -1 {
		return pos
	}
	if pos := bytes.Index(data, StartCode3); pos != -1 {
		return pos
	}
	return -1
}

// HasStartCode checks if data begins with a start code
func HasStartCode(data []byte) bool {
	return bytes.HasPrefix(data, StartCode4) || bytes.HasPrefix(data, StartCode3)
}

// AddStartCodeIfNeeded prepends a start code if the data doesn't already have one
func AddStartCodeIfNeeded(data []byte) []byte {
	if HasStartCode(data) {
		return data
	}

	// Use 4-byte start code by default
	result := make([]byte, 0, len(data)+4)
	result = append(result, StartCode4...)
	result = append(result, data...)
	return result
}

// stripStartCode removes a leading 3- or 4-byte start code, returning the
// raw NAL payload (type byte onward).
func stripStartCode(nalUnit []byte) []byte {
	if bytes.HasPrefix(nalUnit, StartCode4) {
		return nalUnit[4:]
	}
	if bytes.HasPrefix(nalUnit, StartCode3) {
		return nalUnit[3:]
	}
	return nalUnit
}

// annexBUnits parses Annex-B data into raw NAL payloads (start codes
// stripped) via mediacommon, falling back to an empty result if the
// bitstream is malformed.
func annexBUnits(data []byte) [][]byte {
	var units mch264.AnnexB
	if err := units.Unmarshal(AddStartCodeIfNeeded(data)); err != nil {
		return nil
	}
	return units
}

// ExtractParameterSets scans Annex-B data and returns the first SPS and PPS
// NAL payloads found (start codes stripped). Either may be nil if absent.
func ExtractParameterSets(data []byte) (sps, pps []byte) {
	for _, nalu := range annexBUnits(data) {
		if len(nalu) == 0 {
			continue
		}
		switch mch264.NALUType(nalu[0] & 0x1F) {
		case mch264.NALUTypeSPS:
			if sps == nil {
				sps = nalu
			}
		case mch264.NALUTypePPS:
			if pps == nil {
				pps = nalu
			}
		}
	}
	return sps, pps
}

// SplitByStartCodes splits Annex-B data into individual NAL units,
// each retaining its start code
func SplitByStartCodes(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}

	var nalUnits [][]byte
	var currentStart int

	// Find all start code positions
	for i := 0; i < len(data)-2; {
		// Look for 3-byte or 4-byte start codes
		if i < len(data)-3 && bytes.Equal(data[i:i+4], StartCode4) {
			// Found 4-byte start code
			if i > currentStart {
				nalUnits = append(nalUnits, data[currentStart:i])
			}
			currentStart = i
			i += 4
		} else if bytes.Equal(data[i:i+3], StartCode3) {
			// Found 3-byte start code
			if i > currentStart {
				nalUnits = append(nalUnits, data[currentStart:i])
			}
			currentStart = i
			i += 3
		} else {
			i++
		}
	}

	// Add the last NAL unit
	if currentStart < len(data) {
		nalUnits = append(nalUnits, data[currentStart:])
	}

	return nalUnits
}

// IsKeyFrame reports whether the Annex-B access unit contains an IDR
// (type 5) or SPS (type 7) NAL unit. SPS alone suffices so encoders that
// embed parameter sets only on the IDR access unit still classify it as
// a keyframe via the IDR check, and encoders that repeat SPS on every
// keyframe are caught by either check.
func IsKeyFrame(data []byte) bool {
	for _, nalu := range annexBUnits(data) {
		if len(nalu) == 0 {
			continue
		}
		switch mch264.NALUType(nalu[0] & 0x1F) {
		case mch264.NALUTypeIDR, mch264.NALUTypeSPS:
			return true
		}
	}
	return false
}

// ConvertAnnexBToAVC rewrites an Annex-B access unit into AVCC form: each
// NAL unit prefixed with its big-endian 4-byte length instead of a start
// code. Grounded on the equivalent converter in the upstream streaming
// pipeline's h264 package.
func ConvertAnnexBToAVC(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, nalu := range annexBUnits(data) {
		out = appendLengthPrefixed(out, nalu)
	}
	return out
}

// PrependParameterSetsAVCC prepends length-prefixed SPS and PPS NAL units
// (raw payloads, no start codes) ahead of an already-AVCC access unit, so
// a decoder joining mid-stream has parameter sets available on every
// keyframe rather than only in the init segment's avcC box.
func PrependParameterSetsAVCC(avcc, sps, pps []byte) []byte {
	if len(avcc) == 0 || len(sps) == 0 || len(pps) == 0 {
		return avcc
	}
	out := make([]byte, 0, len(avcc)+len(sps)+len(pps)+8)
	out = appendLengthPrefixed(out, sps)
	out = appendLengthPrefixed(out, pps)
	out = append(out, avcc...)
	return out
}

func appendLengthPrefixed(out, nalu []byte) []byte {
	n := uint32(len(nalu))
	out = append(out, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	return append(out, nalu...)
}
