package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/drillmap/pkg/model"
)

// DefaultMaxDocumentSize caps how much of a hierarchy document is read (10MB).
const DefaultMaxDocumentSize = 1024 * 1024 * 10

// ParseOptions configures the behavior of ParseHierarchy.
type ParseOptions struct {
	// WarningHandler is called with warning messages about data that loads
	// but cannot be fully navigated (e.g. a detail map with no departments).
	// If nil, warnings are printed to os.Stderr.
	WarningHandler func(string)

	// MaxSize sets the maximum document size in bytes.
	// If 0, uses DefaultMaxDocumentSize.
	MaxSize int64
}

// LoadHierarchyFromFile reads a hierarchy document from a local file.
func LoadHierarchyFromFile(path string) (*model.Hierarchy, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no hierarchy data found at %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hierarchy file: %w", err)
	}
	defer file.Close()

	return ParseHierarchy(file)
}

// ParseHierarchy parses a hierarchy document from a reader.
func ParseHierarchy(r io.Reader) (*model.Hierarchy, error) {
	return ParseHierarchyWithOptions(r, ParseOptions{})
}

// ParseHierarchyBytes parses an already fetched hierarchy document.
func ParseHierarchyBytes(data []byte, opts ParseOptions) (*model.Hierarchy, error) {
	return ParseHierarchyWithOptions(bytes.NewReader(data), opts)
}

// ParseHierarchyWithOptions parses a hierarchy document with custom options.
// Handles UTF-8 BOM stripping, identifier normalization and validation.
func ParseHierarchyWithOptions(r io.Reader, opts ParseOptions) (*model.Hierarchy, error) {
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxDocumentSize
	}

	warn := opts.WarningHandler
	if warn == nil {
		warn = func(msg string) {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
		}
	}

	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading hierarchy stream: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("hierarchy document exceeds %d bytes", maxSize)
	}

	data = stripBOM(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("hierarchy document is empty")
	}

	var h model.Hierarchy
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parsing hierarchy JSON: %w", err)
	}

	normalizeIDs(&h)

	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("invalid hierarchy: %w", err)
	}

	for _, p := range h.Provinces {
		switch {
		case p.HasMap() && len(p.Departments) == 0:
			warn(fmt.Sprintf("province %q declares map %q but no departments; its detail map will not be offered", p.ID, p.Map))
		case !p.HasMap() && len(p.Departments) > 0:
			warn(fmt.Sprintf("province %q lists %d departments but no map; departments cannot be selected", p.ID, len(p.Departments)))
		}
	}

	return &h, nil
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}

func normalizeIDs(h *model.Hierarchy) {
	for i := range h.Provinces {
		p := &h.Provinces[i]
		p.ID = strings.TrimSpace(p.ID)
		for j := range p.Departments {
			d := &p.Departments[j]
			d.ID = strings.TrimSpace(d.ID)
			for k := range d.Cities {
				d.Cities[k].ID = strings.TrimSpace(d.Cities[k].ID)
			}
		}
	}
}
