package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// errUnknownLayout is returned for JSON that is neither an item array nor an
// object carrying one under "components".
var errUnknownLayout = errors.New("dataset must be an array or an object with a components array")

// Decode reads a dataset. Gzip and zstd payloads are detected by name suffix
// or by their magic bytes.
func Decode(r io.Reader, name string) ([]map[string]any, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zstdMagic))

	var src io.Reader = br
	switch {
	case strings.HasSuffix(name, ".gz") || bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		src = gz
	case strings.HasSuffix(name, ".zst") || bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	var raw json.RawMessage
	if err := json.NewDecoder(src).Decode(&raw); err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	return decodeItems(raw)
}

func decodeItems(raw json.RawMessage) ([]map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errUnknownLayout
	}

	var items []map[string]any
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
	case '{':
		var doc struct {
			Components []map[string]any `json:"components"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		if doc.Components == nil {
			return nil, errUnknownLayout
		}
		items = doc.Components
	default:
		return nil, errUnknownLayout
	}

	if items == nil {
		items = []map[string]any{}
	}
	return items, nil
}
