package cache

import (
	"bytes"
	"encoding/gob"
)

// encodeGob and decodeGob back the cache's entry/meta/journal rows. gob's
// field-by-name matching already tolerates unknown or missing fields
// across schema changes, which is the tagged-field tolerance §6.4 asks for.
func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
