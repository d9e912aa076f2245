package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/rotisserie/eris"
)

// RecordsField is the key under which a wrapped record file keeps its rows:
// {"records": [...]}.
const RecordsField = "records"

// EachJSONRecord streams the rows of a JSON record file to fn, one decoded
// element at a time. The file is either a bare array or an object whose
// RecordsField holds the array; other object keys are skipped. null elements
// are skipped. It returns the number of rows passed to fn.
func EachJSONRecord[T any](ctx context.Context, r io.Reader, fn func(T) error) (int, error) {
	dec := json.NewDecoder(r)
	if err := seekRecords(dec); err != nil {
		return 0, err
	}

	n := 0
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return n, eris.Wrap(err, "json: context cancelled")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return n, eris.Wrapf(err, "json: decode record %d", n)
		}
		if bytes.Equal(raw, []byte("null")) {
			continue
		}
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return n, eris.Wrapf(err, "json: decode record %d", n)
		}
		if err := fn(item); err != nil {
			return n, err
		}
		n++
	}
	if _, err := dec.Token(); err != nil {
		return n, eris.Wrap(err, "json: read closing token")
	}
	return n, nil
}

// seekRecords leaves dec positioned just inside the record array.
func seekRecords(dec *json.Decoder) error {
	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return eris.New("json: empty record file")
	}
	if err != nil {
		return eris.Wrap(err, "json: read opening token")
	}
	switch tok {
	case json.Delim('['):
		return nil
	case json.Delim('{'):
	default:
		return eris.Errorf("json: expected '[' or '{', got %v", tok)
	}

	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "json: read key")
		}
		if key != RecordsField {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return eris.Wrapf(err, "json: skip %v", key)
			}
			continue
		}
		tok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "json: read records")
		}
		if tok != json.Delim('[') {
			return eris.Errorf("json: %q must be an array", RecordsField)
		}
		return nil
	}
	return eris.Errorf("json: object has no %q array", RecordsField)
}

// DecodePayload decodes a payload document into T. The document must be a
// single JSON object; a top-level null or trailing data is an error.
func DecodePayload[T any](r io.Reader) (*T, error) {
	dec := json.NewDecoder(r)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, eris.New("json: empty payload")
		}
		return nil, eris.Wrapf(err, "json: decode payload at offset %d", dec.InputOffset())
	}
	if len(raw) == 0 || raw[0] != '{' {
		return nil, eris.New("json: payload is not an object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, eris.Errorf("json: trailing data after payload at offset %d", dec.InputOffset())
	}

	var obj T
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, eris.Wrap(err, "json: decode payload")
	}
	return &obj, nil
}

// Load opens location through f and decodes the payload it holds.
func Load[T any](ctx context.Context, f Fetcher, location string) (*T, error) {
	rc, err := f.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	obj, err := DecodePayload[T](rc)
	if err != nil {
		return nil, eris.Wrapf(err, "load %s", location)
	}
	return obj, nil
}
