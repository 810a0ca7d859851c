package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-oanda/pkg/errors"
)

// fields is a decoded JSON object whose values are parsed lazily, one key at a time.
// OANDA encodes decimals as strings and some integers either way, so each accessor
// accepts what the server actually sends rather than relying on struct tags.
type fields map[string]json.RawMessage

var jsonNull = []byte("null")

func parseFields(raw []byte) (fields, error) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidField, "payload is not a JSON object", err)
	}

	if f == nil {
		return nil, errors.New(errors.ErrCodeInvalidField, "payload is null")
	}

	return f, nil
}

func missingField(key string) error {
	return errors.Newf(errors.ErrCodeMissingField, "missing required field %q", key)
}

func invalidField(key string, cause error) error {
	return errors.Wrapf(errors.ErrCodeInvalidField, cause, "invalid field %q", key)
}

// has reports whether key is present with a non-null value.
func (f fields) has(key string) bool {
	v, ok := f[key]

	return ok && !bytes.Equal(bytes.TrimSpace(v), jsonNull)
}

func (f fields) str(key string) (string, error) {
	if !f.has(key) {
		return "", missingField(key)
	}

	var s string
	if err := json.Unmarshal(f[key], &s); err != nil {
		return "", invalidField(key, err)
	}

	return s, nil
}

func (f fields) optStr(key string) (optional.Option[string], error) {
	if !f.has(key) {
		return optional.None[string](), nil
	}

	s, err := f.str(key)
	if err != nil {
		return nil, err
	}

	return optional.Some(s), nil
}

// strOr returns the string under key, or fallback when the key is absent.
func (f fields) strOr(key, fallback string) (string, error) {
	if !f.has(key) {
		return fallback, nil
	}

	return f.str(key)
}

func (f fields) dec(key string) (decimal.Decimal, error) {
	s, err := f.str(key)
	if err != nil {
		return decimal.Zero, err
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, invalidField(key, err)
	}

	return d, nil
}

func (f fields) optDec(key string) (optional.Option[decimal.Decimal], error) {
	if !f.has(key) {
		return optional.None[decimal.Decimal](), nil
	}

	d, err := f.dec(key)
	if err != nil {
		return nil, err
	}

	return optional.Some(d), nil
}

func (f fields) time(key string) (time.Time, error) {
	s, err := f.str(key)
	if err != nil {
		return time.Time{}, err
	}

	t, err := ParseTime(s)
	if err != nil {
		return time.Time{}, invalidField(key, err)
	}

	return t, nil
}

func (f fields) optTime(key string) (optional.Option[time.Time], error) {
	if !f.has(key) {
		return optional.None[time.Time](), nil
	}

	t, err := f.time(key)
	if err != nil {
		return nil, err
	}

	return optional.Some(t), nil
}

// integer accepts both 250000 and "250000".
func (f fields) integer(key string) (int64, error) {
	if !f.has(key) {
		return 0, missingField(key)
	}

	raw := bytes.TrimSpace(f[key])
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, invalidField(key, err)
		}

		raw = []byte(s)
	}

	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, invalidField(key, err)
	}

	return n, nil
}

func (f fields) boolean(key string) (bool, error) {
	if !f.has(key) {
		return false, missingField(key)
	}

	var b bool
	if err := json.Unmarshal(f[key], &b); err != nil {
		return false, invalidField(key, err)
	}

	return b, nil
}

func (f fields) optBool(key string) (optional.Option[bool], error) {
	if !f.has(key) {
		return optional.None[bool](), nil
	}

	b, err := f.boolean(key)
	if err != nil {
		return nil, err
	}

	return optional.Some(b), nil
}

func (f fields) object(key string) (fields, error) {
	if !f.has(key) {
		return nil, missingField(key)
	}

	obj, err := parseFields(f[key])
	if err != nil {
		return nil, invalidField(key, err)
	}

	return obj, nil
}

func (f fields) array(key string) ([]json.RawMessage, error) {
	if !f.has(key) {
		return nil, missingField(key)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(f[key], &items); err != nil {
		return nil, invalidField(key, err)
	}

	return items, nil
}

func (f fields) strings(key string) ([]string, error) {
	if !f.has(key) {
		return nil, nil
	}

	var items []string
	if err := json.Unmarshal(f[key], &items); err != nil {
		return nil, invalidField(key, err)
	}

	return items, nil
}

// enum reads a string field and checks it against the allowed values.
func enum[T ~string](f fields, key string, allowed ...T) (T, error) {
	s, err := f.str(key)
	if err != nil {
		return "", err
	}

	for _, a := range allowed {
		if T(s) == a {
			return a, nil
		}
	}

	return "", errors.Newf(errors.ErrCodeInvalidField, "invalid field %q: unrecognized value %q", key, s)
}

// enumOr is enum with a default for an absent key.
func enumOr[T ~string](f fields, key string, fallback T, allowed ...T) (T, error) {
	if !f.has(key) {
		return fallback, nil
	}

	return enum(f, key, allowed...)
}

// parseEach parses every element of the array under key with parse.
func parseEach[T any](f fields, key string, parse func(fields) (T, error)) ([]T, error) {
	items, err := f.array(key)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(items))
	for i, item := range items {
		obj, err := parseFields(item)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidField, err, "invalid element %d of %q", i, key)
		}

		v, err := parse(obj)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidField, err, "invalid element %d of %q", i, key)
		}

		out = append(out, v)
	}

	return out, nil
}

// parseOpt parses the object under key with parse if present.
func parseOpt[T any](f fields, key string, parse func(fields) (T, error)) (optional.Option[T], error) {
	if !f.has(key) {
		return optional.None[T](), nil
	}

	obj, err := f.object(key)
	if err != nil {
		return nil, err
	}

	v, err := parse(obj)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidField, err, "invalid field %q", key)
	}

	return optional.Some(v), nil
}
