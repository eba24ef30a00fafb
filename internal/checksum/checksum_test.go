package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %s", got)
	}
}

func TestJSON(t *testing.T) {
	a, err := JSON(map[string]int{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	b, _ := JSON(map[string]int{"b": 2, "a": 1})
	if a != b {
		t.Error("map key order changed the digest")
	}
	if _, err := JSON(func() {}); err == nil {
		t.Error("expected error for unencodable value")
	}
}
