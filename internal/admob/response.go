package admob

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Response is a raw network report: a header object, zero or more
// {"row": {...}} objects, and a footer carrying matchingRowCount.
type Response []map[string]interface{}

// DecodeResponse decodes a JSON array report. Numbers are kept as
// json.Number so they are written back to the warehouse unchanged.
func DecodeResponse(r io.Reader) (Response, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var resp Response
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: decoding report: %v", ErrMalformedResponse, err)
	}
	return resp, nil
}

// ParseResponse decodes a report held in memory, e.g. an archived copy.
func ParseResponse(data []byte) (Response, error) {
	return DecodeResponse(bytes.NewReader(data))
}

// Header returns the header object of the first element.
func (r Response) Header() (map[string]interface{}, error) {
	if len(r) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	header, ok := r[0]["header"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: first element has no header", ErrMalformedResponse)
	}
	return header, nil
}

// Footer returns the footer object of the last element.
func (r Response) Footer() (map[string]interface{}, error) {
	if len(r) < 2 {
		return nil, fmt.Errorf("%w: %d elements, want header and footer", ErrMalformedResponse, len(r))
	}
	footer, ok := r[len(r)-1]["footer"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: last element has no footer", ErrMalformedResponse)
	}
	return footer, nil
}

// MatchingRowCount returns the footer's row count. The API encodes int64
// values as JSON strings; plain numbers are accepted too.
func (r Response) MatchingRowCount() (int, error) {
	footer, err := r.Footer()
	if err != nil {
		return 0, err
	}

	raw, ok := footer["matchingRowCount"]
	if !ok {
		return 0, fmt.Errorf("%w: footer has no matchingRowCount", ErrMalformedResponse)
	}

	var n int64
	switch v := raw.(type) {
	case string:
		n, err = strconv.ParseInt(v, 10, 64)
	case json.Number:
		n, err = v.Int64()
	case float64:
		n = int64(v)
		if float64(n) != v {
			err = fmt.Errorf("not an integer")
		}
	default:
		err = fmt.Errorf("unexpected type %T", raw)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: matchingRowCount %v: %v", ErrMalformedResponse, raw, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: matchingRowCount %d is negative", ErrMalformedResponse, n)
	}
	return int(n), nil
}

// DataRows returns the "row" objects of the first matchingRowCount elements
// after the header.
func (r Response) DataRows() ([]map[string]interface{}, error) {
	n, err := r.MatchingRowCount()
	if err != nil {
		return nil, err
	}
	if n > len(r)-2 {
		return nil, fmt.Errorf("%w: matchingRowCount %d exceeds the %d rows returned", ErrMalformedResponse, n, len(r)-2)
	}

	rows := make([]map[string]interface{}, 0, n)
	for i := 1; i <= n; i++ {
		row, ok := r[i]["row"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: element %d has no row", ErrMalformedResponse, i)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
