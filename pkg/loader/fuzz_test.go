package loader_test

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/drillmap/pkg/loader"
)

// =============================================================================
// Fuzz Tests for Hierarchy Parser Robustness
// =============================================================================
//
// The hierarchy document comes from a user-controlled asset base, so the
// parser must reject malformed or adversarial input with an error instead of
// panicking or returning a half-valid tree.
//
// Run with: go test -fuzz=FuzzParseHierarchy ./pkg/loader/

func FuzzParseHierarchy(f *testing.F) {
	seeds := []string{
		// Valid minimal document
		`{"country":{"name":"Argentina"},"provinces":[]}`,

		// Full nesting
		`{"country":{"name":"Argentina","info":"i","flag":"ar.svg"},"provinces":[{"id":"sf","name":"Santa Fe","map":"sf.svg","departments":[{"id":"d1","name":"Rosario","cities":[{"id":"c1","name":"Rosario"}]}]}]}`,

		// Empty and whitespace
		"",
		"   \t  ",

		// Incomplete and invalid JSON
		`{"country":{"name":"Arg`,
		`{country:{name:"x"}}`,
		`{"country":{"name":"x"},}`,

		// Missing country name
		`{"country":{},"provinces":[]}`,

		// Duplicate and blank identifiers
		`{"country":{"name":"x"},"provinces":[{"id":"a"},{"id":"a"}]}`,
		`{"country":{"name":"x"},"provinces":[{"id":"  "}]}`,
		`{"country":{"name":"x"},"provinces":[{"id":"a","departments":[{"id":"d"},{"id":"d"}]}]}`,

		// Map without departments and the reverse (warnings only)
		`{"country":{"name":"x"},"provinces":[{"id":"a","map":"a.svg"}]}`,
		`{"country":{"name":"x"},"provinces":[{"id":"a","departments":[{"id":"d"}]}]}`,

		// Wrong types
		`{"country":"x","provinces":{}}`,
		`{"country":{"name":1},"provinces":[1,2,3]}`,
		`[{"country":{"name":"x"}}]`,
		`"just a string"`,
		`42`,
		`null`,

		// Unicode, BOM and control characters
		`{"country":{"name":"Argentina 🇦🇷 Córdoba"},"provinces":[]}`,
		"\xef\xbb\xbf" + `{"country":{"name":"BOM"},"provinces":[]}`,
		`{"country":{"name":"Tab\there\nNewline"},"provinces":[]}`,

		// Binary data and invalid UTF-8
		"\x00\x01\x02\x03",
		"\xff\xfe",

		// Very long string (64KB)
		`{"country":{"name":"` + strings.Repeat("x", 65536) + `"},"provinces":[]}`,

		// Concatenated documents
		`{"country":{"name":"a"}}{"country":{"name":"b"}}`,
	}

	for _, seed := range seeds {
		f.Add([]byte(seed))
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		// go-json has panicked on some malformed input in the past
		defer func() {
			if r := recover(); r != nil {
				t.Logf("recovered from panic in JSON decoder: %v", r)
			}
		}()

		h, err := loader.ParseHierarchyBytes(data, loader.ParseOptions{WarningHandler: func(string) {}})
		if err != nil {
			if h != nil {
				t.Fatalf("non-nil hierarchy returned with error %v", err)
			}
			return
		}
		if h == nil {
			t.Fatal("nil hierarchy without error")
		}
		// anything accepted must be navigable
		if err := h.Validate(); err != nil {
			t.Fatalf("accepted hierarchy fails validation: %v", err)
		}
		for _, p := range h.Provinces {
			if strings.TrimSpace(p.ID) != p.ID {
				t.Fatalf("province id %q not normalized", p.ID)
			}
			if _, err := h.Province(p.ID); err != nil {
				t.Fatalf("province %q not found by id: %v", p.ID, err)
			}
		}
	})
}

// FuzzParseHierarchy_SizeLimit checks the size cap holds for any input.
func FuzzParseHierarchy_SizeLimit(f *testing.F) {
	f.Add([]byte(`{"country":{"name":"x"},"provinces":[]}`), int64(10))
	f.Add([]byte(`{"country":{"name":"x"},"provinces":[]}`), int64(1000))

	f.Fuzz(func(t *testing.T, data []byte, max int64) {
		if max <= 0 || max > 1<<20 {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				t.Logf("recovered from panic in JSON decoder: %v", r)
			}
		}()
		_, err := loader.ParseHierarchyBytes(data, loader.ParseOptions{WarningHandler: func(string) {}, MaxSize: max})
		if int64(len(data)) > max && err == nil {
			t.Fatalf("document of %d bytes accepted with MaxSize %d", len(data), max)
		}
	})
}
