package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
)

const maxBodyBytes = 1 << 20

// maxSafeInteger is the largest integer a JSON number is guaranteed to carry
// exactly.
const maxSafeInteger = 1<<53 - 1

// Payload is the object found under "data" in a request body. Values keep
// their JSON types (numbers as json.Number) so validation can tell a string
// "10" from the number 10.
type Payload map[string]interface{}

// DecodeData reads the {"data": {...}} envelope from a body of at most
// maxBodyBytes; larger bodies are rejected with 413. A missing body or a data
// member that is not an object yields an empty payload; field validation then
// reports what is missing.
func DecodeData(r *http.Request) (Payload, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, TooLarge(tooLarge.Limit)
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return Payload{}, nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, Validation("Request body must be valid JSON")
	}

	payload := Payload{}
	dec := json.NewDecoder(bytes.NewReader(envelope.Data))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) || errors.Is(err, io.EOF) {
			return Payload{}, nil
		}
		return nil, Validation("Request body must be valid JSON")
	}
	if payload == nil {
		payload = Payload{}
	}
	return payload, nil
}

// Present reports whether key holds a truthy value: not missing, null,
// false, zero or the empty string.
func (p Payload) Present(key string) bool {
	return truthy(p[key])
}

// String returns the value of key when it is a non-empty string.
func (p Payload) String(key string) (string, bool) {
	s, ok := p[key].(string)
	return s, ok && s != ""
}

// Integer returns the value of key when it is a JSON number with no
// fractional part. 10.0 counts as an integer; "10" does not.
func (p Payload) Integer(key string) (int, bool) {
	n, ok := p[key].(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > maxSafeInteger {
		return 0, false
	}
	return int(f), true
}

// List returns the value of key when it is a JSON array.
func (p Payload) List(key string) ([]interface{}, bool) {
	l, ok := p[key].([]interface{})
	return l, ok
}

// Object converts v to a Payload when it is a JSON object.
func Object(v interface{}) (Payload, bool) {
	m, ok := v.(map[string]interface{})
	return Payload(m), ok
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

// CheckRouteID rejects a body id that contradicts the route id. A missing or
// empty body id, or one equal to the route id, passes.
func (p Payload) CheckRouteID(kind, routeID string) error {
	if !p.Present("id") {
		return nil
	}
	if bodyID := fmt.Sprint(p["id"]); bodyID != routeID {
		return IDMismatch(kind, bodyID, routeID)
	}
	return nil
}
