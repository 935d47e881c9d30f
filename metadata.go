package ogawa

import (
	"fmt"
	"sort"
	"strings"
)

// Metadata is an ordered key-value dictionary attached to an object or
// property. It serialises as "key=value" pairs joined by ";" with no
// trailing separator; duplicate keys resolve to the last write.
type Metadata struct {
	values map[string]string
}

// deserializeMetadata parses a ";"-separated, "="-split metadata string.
// An absent "=" yields an empty value; a later duplicate key overwrites an
// earlier one.
func deserializeMetadata(text string) Metadata {
	m := Metadata{values: make(map[string]string)}
	if text == "" {
		return m
	}

	for _, pair := range strings.Split(text, ";") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		m.values[key] = value
	}

	return m
}

// Serialize reproduces "k=v;k=v" in key-sorted order.
func (m Metadata) Serialize() string {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + m.values[k]
	}
	return strings.Join(parts, ";")
}

// Get returns the value for key and whether it was present.
func (m Metadata) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of keys.
func (m Metadata) Len() int { return len(m.values) }

// readIndexedMetadataTable decodes the archive-wide indexed-metadata table
// from a single data chunk: repeatedly read a u8 length then that many
// UTF-8 bytes. A trailing entry whose advertised length would exactly
// consume the remainder of the chunk is a sentinel meaning "empty" and is
// not actually read. Entry 0 is always the empty record, prepended before
// decoding the chunk's own entries.
func readIndexedMetadataTable(src ByteSource, d DataChunk) ([]Metadata, error) {
	table := []Metadata{deserializeMetadata("")}

	if d.Size == 0 {
		return table, nil
	}

	payload, err := d.ReadAll(src)
	if err != nil {
		return nil, err
	}

	pos := uint64(0)
	size := uint64(len(payload))

	for pos < size {
		length := uint64(payload[pos])
		pos++

		if pos+length == size {
			// Trailing-sentinel rule: the advertised length would exactly
			// consume the rest of the chunk. Treat this entry as empty
			// and stop without reading the declared bytes.
			table = append(table, deserializeMetadata(""))
			break
		}

		if pos+length > size {
			return nil, fmt.Errorf("indexed metadata entry length %d overruns chunk: %w", length, ErrInvalidArchive)
		}

		text := string(payload[pos : pos+length])
		table = append(table, deserializeMetadata(text))
		pos += length
	}

	return table, nil
}
