package scopeid

import "testing"

func TestClassify_UUID(t *testing.T) {
	cases := []string{
		"123e4567-e89b-12d3-a456-426614174000",
		"00000000-0000-0000-0000-000000000000",
		"FFFFFFFF-FFFF-FFFF-FFFF-FFFFFFFFFFFF",
		"a1B2c3D4-e5F6-7a8b-9c0d-e1f2a3b4c5d6",
	}
	for _, raw := range cases {
		if got := Classify(raw); got != KindUUID {
			t.Errorf("Classify(%q) = %v, want KindUUID", raw, got)
		}
	}
}

func TestClassify_PeerID(t *testing.T) {
	cases := []string{
		"store_01HQWE1234567890",
		"store_a",
		"store_ABCdef123",
	}
	for _, raw := range cases {
		if got := Classify(raw); got != KindPeerID {
			t.Errorf("Classify(%q) = %v, want KindPeerID", raw, got)
		}
	}
}

func TestClassify_Unknown(t *testing.T) {
	cases := []string{
		"",
		"not-a-valid-id",
		"store_",                                 // prefix with no body
		"store_abc-def",                          // dash not allowed after prefix
		"Store_abc123",                           // prefix is case-sensitive
		" store_abc123",                          // leading whitespace
		"store_abc123 ",                          // trailing whitespace
		"123e4567e89b12d3a456426614174000",       // UUID without dashes
		"123e4567-e89b-12d3-a456-4266141740000",  // too many digits
		"123e4567-e89b-12d3-a456-42661417400",    // too few digits
		"g23e4567-e89b-12d3-a456-426614174000",   // non-hex character
		"urn:uuid:123e4567-e89b-12d3-a456-426614174000",
		"store_01HQ WE12",
		"shop_01HQWE1234567890", // wrong prefix
	}
	for _, raw := range cases {
		if got := Classify(raw); got != KindUnknown {
			t.Errorf("Classify(%q) = %v, want KindUnknown", raw, got)
		}
	}
}

// Classification is exhaustive: every input maps to exactly one kind, and the
// predicate helpers agree with Classify.
func TestClassify_Total(t *testing.T) {
	inputs := []string{
		"", "store_x", "123e4567-e89b-12d3-a456-426614174000", "junk",
		"\x00\xff", "store_\x00", "店舗_123", "STORE_ABC",
	}
	for _, raw := range inputs {
		k := Classify(raw)
		if k != KindUUID && k != KindPeerID && k != KindUnknown {
			t.Fatalf("Classify(%q) returned out-of-range kind %d", raw, k)
		}
		if IsUUID(raw) != (k == KindUUID) {
			t.Errorf("IsUUID(%q) disagrees with Classify", raw)
		}
		if IsPeerID(raw) != (k == KindPeerID) {
			t.Errorf("IsPeerID(%q) disagrees with Classify", raw)
		}
	}
}

func TestKindString(t *testing.T) {
	if KindUUID.String() != "uuid" || KindPeerID.String() != "peer_id" || KindUnknown.String() != "unknown" {
		t.Error("unexpected Kind label")
	}
}
