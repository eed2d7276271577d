package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tracelight/defectdesk/internal/model/result"
)

// parseRows decodes a JSON array of objects while preserving the key order of
// each object. encoding/json maps would scramble columns, so the token stream
// is walked directly.
func parseRows(data string) ([]result.Row, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	rows := make([]result.Row, 0, 16)
	for dec.More() {
		row, err := parseRow(dec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return rows, nil
}

func parseRow(dec *json.Decoder) (result.Row, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var row result.Row
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		row = append(row, result.Cell{Column: key, Value: stringify(value)})
	}

	return row, expectDelim(dec, '}')
}

// parsePoints decodes a JSON object of label -> numeric count, keeping the
// label order the backend emitted.
func parsePoints(data string) ([]result.Point, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	points := make([]result.Point, 0, 8)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		label, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected label, got %v", tok)
		}

		var num json.Number
		if err := dec.Decode(&num); err != nil {
			return nil, err
		}
		value, err := num.Float64()
		if err != nil {
			return nil, err
		}
		points = append(points, result.Point{Label: label, Value: value})
	}

	return points, expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(raw)
	}
}
