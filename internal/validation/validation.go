// Package validation turns raw request input into validated payloads.
//
// Every Parse* function either returns a value that satisfies its rules or a
// *Error listing field-level violations; callers never see a half-valid value.
// JSON bodies are decoded strictly: a field that is not declared on the payload
// type is a violation of its own.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/patric-chuzhbe/catsapi/internal/models"
)

// Violation is a single failed rule.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned when input does not satisfy its schema.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.Field == "" {
			parts = append(parts, v.Message)
			continue
		}
		parts = append(parts, v.Field+": "+v.Message)
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

const (
	msgUnrecognizedKey = "Unrecognized key"
	msgMalformedJSON   = "Malformed JSON body"
	msgEmptyBody       = "Request body is required"
	msgInvalidID       = "ID must be a positive integer"
)

// messages maps "<json field>.<tag>" to the text reported to the client.
var messages = map[string]string{
	"email.min":     "This field has to be filled.",
	"email.email":   "This is not a valid email.",
	"password.min":  "Minimum 8 characters required.",
	"name.required": "Name is required",
	"name.min":      "Name is required",
	"age.required":  "Age must be a positive number",
	"age.gt":        "Age must be a positive number",
	"age.lte":       "Age must be at most 2147483647",
}

// Rules of the cat fields. Ages are stored in a 32-bit integer column.
const (
	nameRules = "required,min=1"
	ageRules  = "required,gt=0,lte=2147483647"
)

// catPayload keeps the raw value of each field so that an explicit null can
// be told apart from an absent key, and so that 3.0 is accepted as an age.
type catPayload struct {
	Name json.RawMessage `json:"name"`
	Age  json.RawMessage `json:"age"`
}

var positiveIntegerPattern = regexp.MustCompile(`^[0-9]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// ParseLogin validates the login body.
func ParseLogin(body io.Reader) (models.LoginRequest, error) {
	var request models.LoginRequest
	if err := decodeStrict(body, &request); err != nil {
		return models.LoginRequest{}, err
	}
	if err := validateStruct(request); err != nil {
		return models.LoginRequest{}, err
	}

	return request, nil
}

// ParseCreateCat validates the body of a cat creation.
func ParseCreateCat(body io.Reader) (models.CreateCatRequest, error) {
	var payload catPayload
	if err := decodeStrict(body, &payload); err != nil {
		return models.CreateCatRequest{}, err
	}

	name, violations := parseName(payload.Name, nameRules)
	age, ageViolations := parseAge(payload.Age, ageRules)
	violations = append(violations, ageViolations...)
	if len(violations) > 0 {
		return models.CreateCatRequest{}, &Error{Violations: violations}
	}

	return models.CreateCatRequest{Name: *name, Age: *age}, nil
}

// ParseUpdateCat validates a partial cat update. Absent fields are left nil;
// present ones obey the same rules as on creation and may not be null.
// An empty object is valid.
func ParseUpdateCat(body io.Reader) (models.CatPatch, error) {
	var payload catPayload
	if err := decodeStrict(body, &payload); err != nil {
		return models.CatPatch{}, err
	}

	var patch models.CatPatch
	var violations []Violation
	if payload.Name != nil {
		name, nameViolations := parseName(payload.Name, nameRules)
		patch.Name = name
		violations = append(violations, nameViolations...)
	}
	if payload.Age != nil {
		age, ageViolations := parseAge(payload.Age, ageRules)
		patch.Age = age
		violations = append(violations, ageViolations...)
	}
	if len(violations) > 0 {
		return models.CatPatch{}, &Error{Violations: violations}
	}

	return patch, nil
}

// parseName returns nil together with the violations when raw is not a valid name.
// An absent key is checked against the rules as an empty string.
func parseName(raw json.RawMessage, rules string) (*string, []Violation) {
	var name string
	if raw != nil {
		if kind := jsonKind(raw); kind != "string" {
			return nil, []Violation{{Field: "name", Message: "Expected string, received " + kind}}
		}
		if err := json.Unmarshal(raw, &name); err != nil {
			return nil, []Violation{{Field: "name", Message: msgMalformedJSON}}
		}
	}

	if err := validate.Var(name, rules); err != nil {
		return nil, violationsOf(err, "name")
	}

	return &name, nil
}

// parseAge accepts any JSON number with an integral value, so 3, 3.0 and 3e0
// are the same age. An absent key is checked against the rules as zero.
func parseAge(raw json.RawMessage, rules string) (*int, []Violation) {
	var age int
	if raw != nil {
		if kind := jsonKind(raw); kind != "number" {
			return nil, []Violation{{Field: "age", Message: "Expected number, received " + kind}}
		}
		value, err := strconv.ParseFloat(string(raw), 64)
		if err != nil || value != math.Trunc(value) {
			return nil, []Violation{{Field: "age", Message: messageFor("age", "gt")}}
		}
		if value > math.MaxInt32 {
			return nil, []Violation{{Field: "age", Message: messageFor("age", "lte")}}
		}
		if value < math.MinInt32 {
			return nil, []Violation{{Field: "age", Message: messageFor("age", "gt")}}
		}
		age = int(value)
	}

	if err := validate.Var(age, rules); err != nil {
		return nil, violationsOf(err, "age")
	}

	return &age, nil
}

// jsonKind names the type of a raw JSON value the way the error messages do.
func jsonKind(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "undefined"
	}

	switch trimmed[0] {
	case '"':
		return "string"
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// ParseID validates a path identifier: decimal digits with a value above zero.
func ParseID(raw string) (int64, error) {
	invalid := &Error{Violations: []Violation{{Field: "id", Message: msgInvalidID}}}

	if !positiveIntegerPattern.MatchString(raw) {
		return 0, invalid
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid
	}

	return id, nil
}

// decodeStrict reads exactly one JSON object from body into target. Anything
// after the object, a top-level value that is not an object and keys target
// does not declare are violations.
func decodeStrict(body io.Reader, target interface{}) error {
	decoder := json.NewDecoder(body)

	var raw json.RawMessage
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return &Error{Violations: []Violation{{Message: msgEmptyBody}}}
		}
		return &Error{Violations: []Violation{{Message: msgMalformedJSON}}}
	}

	var trailing json.RawMessage
	if err := decoder.Decode(&trailing); !errors.Is(err, io.EOF) {
		return &Error{Violations: []Violation{{Message: msgMalformedJSON}}}
	}

	if kind := jsonKind(raw); kind != "object" {
		return &Error{Violations: []Violation{{Message: "Expected object, received " + kind}}}
	}

	strict := json.NewDecoder(bytes.NewReader(raw))
	strict.DisallowUnknownFields()

	err := strict.Decode(target)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &Error{Violations: []Violation{{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("Expected %s, received %s", describeType(typeErr.Type.Kind()), typeErr.Value),
		}}}
	}

	if field, ok := unknownField(err); ok {
		return &Error{Violations: []Violation{{Field: field, Message: msgUnrecognizedKey}}}
	}

	return &Error{Violations: []Violation{{Message: msgMalformedJSON}}}
}

// unknownField extracts the key name from the error DisallowUnknownFields produces.
func unknownField(err error) (string, bool) {
	const prefix = "json: unknown field "
	text := err.Error()
	if !strings.HasPrefix(text, prefix) {
		return "", false
	}
	field, unquoteErr := strconv.Unquote(strings.TrimPrefix(text, prefix))
	if unquoteErr != nil {
		return strings.TrimPrefix(text, prefix), true
	}

	return field, true
}

func validateStruct(payload interface{}) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	return &Error{Violations: violationsOf(err, "")}
}

func violationsOf(err error, field string) []Violation {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []Violation{{Field: field, Message: err.Error()}}
	}

	result := make([]Violation, 0, len(fieldErrors))
	for _, fieldErr := range fieldErrors {
		name := field
		if name == "" {
			name = fieldErr.Field()
		}
		result = append(result, Violation{Field: name, Message: messageFor(name, fieldErr.Tag())})
	}

	return result
}

func messageFor(field, tag string) string {
	if message, ok := messages[field+"."+tag]; ok {
		return message
	}

	return fmt.Sprintf("failed on the '%s' rule", tag)
}

func describeType(kind reflect.Kind) string {
	switch kind {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	default:
		return kind.String()
	}
}
