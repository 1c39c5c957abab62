// Package keycodec implements the wire encoding for domain.IslandKey
// (spec.md §6): a base-36 textual encoding of the packed 40-bit integer, plus
// a parallel human-authorable debug text format that re-packs through the
// same canonical encoder so both forms always agree.
package keycodec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/islandport/actuator/internal/domain"
)

const maxKeyValue = (uint64(1) << 40) - 1

// Encode renders key as lowercase base-36 text. Encoding ZeroKey yields "0".
func Encode(key domain.IslandKey) string {
	return strconv.FormatUint(uint64(key), 36)
}

// Decode parses the canonical base-36 wire format. Rejects non-integers,
// whitespace-only input, negative numbers, values overflowing 40 bits, and
// zero (spec.md §6: a value of 0 is invalid, never a live island key).
func Decode(text string) (domain.IslandKey, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.ZeroKey, fmt.Errorf("%w: empty input", domain.ErrKeyNotAnInteger)
	}
	v, err := strconv.ParseUint(trimmed, 36, 64)
	if err != nil {
		return domain.ZeroKey, fmt.Errorf("%w: %q", domain.ErrKeyNotAnInteger, text)
	}
	if v > maxKeyValue {
		return domain.ZeroKey, fmt.Errorf("%w: %q", domain.ErrKeyOverflow, text)
	}
	if v == 0 {
		return domain.ZeroKey, fmt.Errorf("%w: %q", domain.ErrKeyInvalid, text)
	}
	key := domain.IslandKey(v)
	return key, nil
}

// ─── Debug Text Format ──────────────────────────────────────────────────────
// A human-authoring format: comma- or space-separated key=value pairs with
// aliases {t|type}, {p|props}, {f|flags}. Unknown pairs are ignored. Missing
// fields default to 0. The parsed triple is re-packed through PackKey so the
// debug and wire forms always yield identical keys.

// DecodeDebug parses the debug key=value text format and packs the result
// through the canonical encoder.
func DecodeDebug(text string) (domain.IslandKey, error) {
	var typeID, propsID uint64
	var flags uint64

	for _, field := range splitFields(text) {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		eq := strings.IndexByte(field, '=')
		if eq < 0 {
			continue // not a key=value pair — ignored per spec
		}
		key := strings.ToLower(strings.TrimSpace(field[:eq]))
		val := strings.TrimSpace(field[eq+1:])
		n, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			continue // unknown/malformed value — ignored, not fatal
		}
		switch key {
		case "t", "type":
			typeID = n
		case "p", "props":
			propsID = n
		case "f", "flags":
			flags = n
		}
	}

	return domain.PackKey(uint32(typeID), uint32(propsID), uint8(flags)), nil
}

// splitFields splits on commas and/or whitespace, treating runs of either as
// a single separator.
func splitFields(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}
