package keycodec

import (
	"testing"

	"github.com/islandport/actuator/internal/domain"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	key := domain.PackKey(42, 12345, 0b1010)
	text := Encode(key)
	got, err := Decode(text)
	if err != nil {
		t.Fatalf("Decode(%q) error: %v", text, err)
	}
	if got != key {
		t.Errorf("round trip = %d, want %d", got, key)
	}
}

func TestDecodeRejectsWhitespaceOnly(t *testing.T) {
	if _, err := Decode("   "); err == nil {
		t.Error("expected error for whitespace-only input")
	}
}

func TestDecodeRejectsNonInteger(t *testing.T) {
	if _, err := Decode("not-a-key!!"); err == nil {
		t.Error("expected error for non-integer input")
	}
}

func TestDecodeRejectsZero(t *testing.T) {
	if _, err := Decode("0"); err == nil {
		t.Fatal("expected error decoding zero key")
	}
}

func TestDecodeRejectsOverflow(t *testing.T) {
	// 2^40 doesn't fit in 40 bits.
	over := domain.IslandKey(uint64(1) << 40)
	text := Encode(over)
	if _, err := Decode(text); err == nil {
		t.Error("expected overflow error")
	}
}

func TestDebugAndWireFormsAgree(t *testing.T) {
	debug := "t=42, p=12345 f=10"
	fromDebug, err := DecodeDebug(debug)
	if err != nil {
		t.Fatalf("DecodeDebug error: %v", err)
	}
	want := domain.PackKey(42, 12345, 10)
	if fromDebug != want {
		t.Errorf("DecodeDebug(%q) = %d, want %d", debug, fromDebug, want)
	}

	wire := Encode(want)
	fromWire, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if fromWire != fromDebug {
		t.Errorf("debug and wire forms disagree: %d vs %d", fromDebug, fromWire)
	}
}

func TestDebugFormatAliasesAndMissingDefaults(t *testing.T) {
	a, _ := DecodeDebug("type=5,props=6,flags=7")
	b, _ := DecodeDebug("t=5 p=6 f=7")
	if a != b {
		t.Errorf("aliases should agree: %d vs %d", a, b)
	}

	onlyType, _ := DecodeDebug("t=5")
	if onlyType != domain.PackKey(5, 0, 0) {
		t.Error("missing fields should default to 0")
	}
}

func TestDebugFormatIgnoresUnknownPairs(t *testing.T) {
	k, err := DecodeDebug("t=5, color=red, p=9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k != domain.PackKey(5, 9, 0) {
		t.Errorf("unknown pairs should be ignored, got %d", k)
	}
}
