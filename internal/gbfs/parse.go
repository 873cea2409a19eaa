package gbfs

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/fatih/structtag"
	"github.com/valyala/fastjson"
)

// ErrMissingField is wrapped by a DecodeError when a key declared on a feed
// type is absent from the document, or null where a list is not expected.
var ErrMissingField = errors.New("missing field")

// DecodeError is returned when a feed body is not valid JSON or does not
// match the feed schema.
type DecodeError struct {
	Feed string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Feed, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Feed is implemented by the two GBFS documents this package understands.
type Feed interface {
	StationInformationFeed | StationStatusFeed

	// FeedName returns the GBFS file name of the document, without extension.
	FeedName() string
}

// FeedName implements Feed.
func (StationInformationFeed) FeedName() string { return FeedStationInformation }

// FeedName implements Feed.
func (StationStatusFeed) FeedName() string { return FeedStationStatus }

// Parse decodes raw into a feed of type T. Every key named in the json tags
// of T is required, recursively; unknown keys are ignored. On failure the
// zero value is returned together with a *DecodeError.
func Parse[T Feed](raw []byte) (T, error) {
	var feed T
	name := feed.FeedName()

	if err := json.Unmarshal(raw, &feed); err != nil {
		var zero T
		return zero, &DecodeError{Feed: name, Err: err}
	}

	doc, err := fastjson.ParseBytes(raw)
	if err != nil {
		var zero T
		return zero, &DecodeError{Feed: name, Err: err}
	}

	if err := checkRequired(doc, reflect.TypeOf(feed), ""); err != nil {
		var zero T
		return zero, &DecodeError{Feed: name, Err: err}
	}

	return feed, nil
}

// ParseStationInformation decodes a station_information.json body.
func ParseStationInformation(raw []byte) (StationInformationFeed, error) {
	return Parse[StationInformationFeed](raw)
}

// ParseStationStatus decodes a station_status.json body.
func ParseStationStatus(raw []byte) (StationStatusFeed, error) {
	return Parse[StationStatusFeed](raw)
}

// fieldKey is one entry of the key table derived from a struct's json tags.
type fieldKey struct {
	key      string
	typ      reflect.Type
	embedded bool
	optional bool
}

var fieldTables sync.Map // reflect.Type -> []fieldKey

// fieldTable returns the json key table of a struct type.
func fieldTable(t reflect.Type) ([]fieldKey, error) {
	if cached, ok := fieldTables.Load(t); ok {
		return cached.([]fieldKey), nil
	}

	keys := make([]fieldKey, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		tags, err := structtag.Parse(string(f.Tag))
		if err != nil {
			return nil, fmt.Errorf("parse tags of %s.%s: %w", t.Name(), f.Name, err)
		}

		jsonTag, err := tags.Get("json")
		if err != nil {
			// Untagged embedded structs are flattened by encoding/json.
			if f.Anonymous && f.Type.Kind() == reflect.Struct {
				keys = append(keys, fieldKey{typ: f.Type, embedded: true})
			}
			continue
		}
		if jsonTag.Name == "-" {
			continue
		}

		keys = append(keys, fieldKey{
			key:      jsonTag.Name,
			typ:      f.Type,
			optional: jsonTag.HasOption("omitempty"),
		})
	}

	fieldTables.Store(t, keys)
	return keys, nil
}

// checkRequired walks v alongside t and fails on the first declared key
// that is absent, or null for a non-list type. A null list decodes as empty.
func checkRequired(v *fastjson.Value, t reflect.Type, path string) error {
	if v.Type() == fastjson.TypeNull {
		// encoding/json writes nil slices as null; the key is still present.
		if t.Kind() == reflect.Slice {
			return nil
		}
		return fmt.Errorf("%w %q: null value", ErrMissingField, path)
	}

	switch t.Kind() {
	case reflect.Struct:
		keys, err := fieldTable(t)
		if err != nil {
			return err
		}
		for _, fk := range keys {
			if fk.embedded {
				if err := checkRequired(v, fk.typ, path); err != nil {
					return err
				}
				continue
			}

			child := v.Get(fk.key)
			if child == nil {
				if fk.optional {
					continue
				}
				return fmt.Errorf("%w %q", ErrMissingField, joinPath(path, fk.key))
			}
			if err := checkRequired(child, fk.typ, joinPath(path, fk.key)); err != nil {
				return err
			}
		}

	case reflect.Slice:
		items, err := v.Array()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for i, item := range items {
			if err := checkRequired(item, t.Elem(), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}

	return nil
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
