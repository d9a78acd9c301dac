// Package serializer converts between the JSON transport representation
// of a Task and its typed fields.
package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/Novip1906/tasks-api/internal/models"
)

// DecodeTaskFields parses a JSON object into the writable Task fields.
// Unknown keys and the read-only keys id and created_at are ignored.
// An empty body submits no fields. Type problems are returned together
// as a *models.ValidationError.
func DecodeTaskFields(data []byte) (models.TaskFields, error) {
	var fields models.TaskFields
	verr := models.NewValidationError()

	if len(bytes.TrimSpace(data)) == 0 {
		return fields, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		verr.Add(models.NonFieldErrors, parseErrorMessage(data, err))
		return fields, verr
	}
	if raw == nil {
		verr.Add(models.NonFieldErrors, "Invalid data. Expected a dictionary, but got null.")
		return fields, verr
	}

	if v, ok := raw[models.FieldTitle]; ok {
		fields.Title = decodeString(models.FieldTitle, v, verr)
	}
	if v, ok := raw[models.FieldDescription]; ok {
		fields.Description = decodeString(models.FieldDescription, v, verr)
	}
	if v, ok := raw[models.FieldCompleted]; ok {
		fields.Completed = decodeBool(models.FieldCompleted, v, verr)
	}

	if err := verr.OrNil(); err != nil {
		return models.TaskFields{}, err
	}
	return fields, nil
}

// decodeString accepts a JSON string, or a number which is kept in its
// decimal form. Booleans, arrays and objects are rejected.
func decodeString(field string, v json.RawMessage, verr *models.ValidationError) *string {
	if isNull(v) {
		verr.Add(field, models.MsgNull)
		return nil
	}

	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return &s
	}

	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		s = numberString(n)
		return &s
	}

	verr.Add(field, models.MsgNotString)
	return nil
}

var (
	trueValues  = map[string]bool{"t": true, "y": true, "yes": true, "true": true, "on": true, "1": true}
	falseValues = map[string]bool{"f": true, "n": true, "no": true, "false": true, "off": true, "0": true}
)

// decodeBool accepts a JSON boolean, the numbers 0 and 1, and the usual
// yes/no spellings ("true", "on", "y", "1", ...) in lower, Title or
// UPPER case.
func decodeBool(field string, v json.RawMessage, verr *models.ValidationError) *bool {
	if isNull(v) {
		verr.Add(field, models.MsgNull)
		return nil
	}

	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return &b
	}

	var s string
	if err := json.Unmarshal(v, &s); err == nil && isBoolSpelling(s) {
		b = trueValues[strings.ToLower(s)]
		return &b
	}

	var f float64
	if err := json.Unmarshal(v, &f); err == nil && (f == 0 || f == 1) {
		b = f == 1
		return &b
	}

	verr.Add(field, models.MsgNotBoolean)
	return nil
}

func isBoolSpelling(s string) bool {
	lower := strings.ToLower(s)
	if !trueValues[lower] && !falseValues[lower] {
		return false
	}
	return s == lower || s == strings.ToUpper(s) || s == strings.ToUpper(lower[:1])+lower[1:]
}

// numberString renders a JSON number the way it reads back as a
// decimal: integers as digits, other values in shortest round-trip form
// with at least one fractional digit.
func numberString(n json.Number) string {
	text := n.String()
	if isInteger(text) {
		i, ok := new(big.Int).SetString(text, 10)
		if ok {
			return i.String()
		}
		return text
	}

	f, err := n.Float64()
	if err != nil {
		return text
	}
	exp := 0
	if f != 0 {
		e := strconv.FormatFloat(f, 'e', -1, 64)
		exp, _ = strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	}
	if exp < -4 || exp >= 16 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	out := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

func isInteger(text string) bool {
	return !strings.ContainsAny(text, ".eE")
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func parseErrorMessage(data []byte, err error) string {
	if _, ok := err.(*json.UnmarshalTypeError); ok {
		return fmt.Sprintf("Invalid data. Expected a dictionary, but got %s.", jsonKind(data))
	}
	return "JSON parse error - " + err.Error()
}

func jsonKind(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	switch trimmed[0] {
	case '[':
		return "list"
	case '"':
		return "str"
	case 't', 'f':
		return "bool"
	}
	if isInteger(string(trimmed)) {
		return "int"
	}
	return "float"
}
