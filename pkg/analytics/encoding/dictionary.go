package encoding

import (
	"bytes"
	"cmp"
	stdencoding "encoding"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iancoleman/strcase"

	"github.com/randalmurphal/analytics/pkg/analytics"
)

// maxDepth bounds recursion so cyclic pointers fail instead of overflowing.
const maxDepth = 512

var (
	timeType          = reflect.TypeFor[time.Time]()
	anyMetadataType   = reflect.TypeFor[analytics.AnyMetadata]()
	emptyMetadataType = reflect.TypeFor[analytics.EmptyMetadata]()
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[stdencoding.TextMarshaler]()
)

// DictionaryEncoder encodes metadata into the string-keyed object a JSON
// encoder would produce for it: map[string]any holding nested maps,
// []any, strings, bools, nil and numbers (int64, uint64, float32,
// float64, or json.Number for values produced by a json.Marshaler).
//
// Struct fields follow encoding/json rules: json tags, omitempty,
// omitzero, the string option, "-" and promoted embedded fields.
// AnyMetadata is unwrapped before encoding, so erased and unerased
// values produce the same output.
//
// DictionaryEncoder favours fidelity over speed and suits tests,
// logging and low-volume backends.
type DictionaryEncoder struct {
	opts Options
}

// Compile-time interface check.
var _ Encoder[map[string]any] = DictionaryEncoder{}

// NewDictionaryEncoder creates an encoder from DefaultOptions with opts applied.
func NewDictionaryEncoder(opts ...Option) DictionaryEncoder {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return DictionaryEncoder{opts: o}
}

// NewDictionaryEncoderWithOptions creates an encoder using o as is.
func NewDictionaryEncoderWithOptions(o Options) DictionaryEncoder {
	return DictionaryEncoder{opts: o}
}

// Options returns the encoder configuration.
func (e DictionaryEncoder) Options() Options {
	return e.opts
}

// Encode returns the JSON-shaped tree for v, whatever its shape.
func (e DictionaryEncoder) Encode(v any) (any, error) {
	w := walker{opts: e.opts, floats: e.opts.FloatStrings.withDefaults()}
	return w.value(reflect.ValueOf(v), "", 0)
}

// EncodeMetadata implements Encoder. It fails with an *EncodingError when
// v does not encode to a key/value object.
func (e DictionaryEncoder) EncodeMetadata(v any) (map[string]any, error) {
	tree, err := e.Encode(v)
	if err != nil {
		return nil, err
	}
	obj, ok := tree.(map[string]any)
	if !ok {
		return nil, &EncodingError{
			Value:  v,
			Reason: fmt.Sprintf("expected map[string]any, received %s", shapeOf(tree)),
		}
	}
	return obj, nil
}

// Marshal encodes v and serializes the tree as JSON according to the
// output formatting options. Map keys are always sorted.
func (e DictionaryEncoder) Marshal(v any) ([]byte, error) {
	tree, err := e.Encode(v)
	if err != nil {
		return nil, err
	}
	return e.serialize(v, tree)
}

// JSON returns an Encoder that produces serialized JSON objects. Values
// that are not key/value objects fail as with EncodeMetadata.
func (e DictionaryEncoder) JSON() Encoder[[]byte] {
	return EncoderFunc[[]byte](func(v any) ([]byte, error) {
		obj, err := e.EncodeMetadata(v)
		if err != nil {
			return nil, err
		}
		return e.serialize(v, obj)
	})
}

func (e DictionaryEncoder) serialize(v, tree any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(e.opts.Formatting&FormatNoEscapeHTML == 0)
	if e.opts.Formatting&FormatPretty != 0 {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(tree); err != nil {
		return nil, &EncodingError{Value: v, Reason: "serialization failed", Err: err}
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func shapeOf(tree any) string {
	switch tree.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", tree)
	}
}

// walker builds the tree for one Encode call.
type walker struct {
	opts   Options
	floats FloatStrings
}

func (w *walker) fail(v reflect.Value, path, reason string, err error) *EncodingError {
	e := &EncodingError{Path: path, Reason: reason, Err: err}
	if v.IsValid() && v.CanInterface() {
		e.Value = v.Interface()
	}
	return e
}

func (w *walker) value(v reflect.Value, path string, depth int) (any, error) {
	if depth > maxDepth {
		return nil, w.fail(reflect.Value{}, path, "value nested too deeply", nil)
	}
	if !v.IsValid() {
		return nil, nil
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return w.value(v.Elem(), path, depth+1)
	case reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
		if isSpecial(v.Type().Elem()) {
			return w.value(v.Elem(), path, depth+1)
		}
	}

	if v.CanInterface() {
		switch v.Type() {
		case anyMetadataType:
			inner := v.Interface().(analytics.AnyMetadata).Value()
			return w.value(reflect.ValueOf(inner), path, depth+1)
		case emptyMetadataType:
			return map[string]any{}, nil
		case timeType:
			return w.time(v.Interface().(time.Time)), nil
		}

		if out, ok, err := w.marshaler(v, path); ok {
			return out, err
		}
	}

	switch v.Kind() {
	case reflect.Pointer:
		return w.value(v.Elem(), path, depth+1)
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return w.float(v, path)
	case reflect.String:
		return v.String(), nil
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return w.bytes(v.Bytes()), nil
		}
		return w.array(v, path, depth)
	case reflect.Array:
		return w.array(v, path, depth)
	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		return w.mapping(v, path, depth)
	case reflect.Struct:
		return w.object(v, path, depth)
	default:
		return nil, w.fail(v, path, fmt.Sprintf("unsupported type %s", v.Type()), nil)
	}
}

func isSpecial(t reflect.Type) bool {
	return t == anyMetadataType || t == emptyMetadataType || t == timeType
}

// marshaler encodes values implementing json.Marshaler or
// encoding.TextMarshaler, on the value or on its address.
func (w *walker) marshaler(v reflect.Value, path string) (any, bool, error) {
	target := v
	if !target.Type().Implements(jsonMarshalerType) && !target.Type().Implements(textMarshalerType) {
		if v.Kind() == reflect.Pointer || !v.CanAddr() {
			return nil, false, nil
		}
		target = v.Addr()
		if !target.Type().Implements(jsonMarshalerType) && !target.Type().Implements(textMarshalerType) {
			return nil, false, nil
		}
	}

	if m, ok := target.Interface().(json.Marshaler); ok {
		raw, err := m.MarshalJSON()
		if err != nil {
			return nil, true, w.fail(v, path, "MarshalJSON failed", err)
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var out any
		if err := dec.Decode(&out); err != nil {
			return nil, true, w.fail(v, path, "MarshalJSON produced invalid JSON", err)
		}
		return w.rekey(out), true, nil
	}

	text, err := target.Interface().(stdencoding.TextMarshaler).MarshalText()
	if err != nil {
		return nil, true, w.fail(v, path, "MarshalText failed", err)
	}
	return string(text), true, nil
}

func (w *walker) time(t time.Time) any {
	switch w.opts.Dates {
	case DatesRFC3339:
		return t.Format(time.RFC3339)
	case DatesSecondsSince1970:
		return float64(t.UnixNano()) / float64(time.Second)
	case DatesMillisecondsSince1970:
		return float64(t.UnixNano()) / float64(time.Millisecond)
	default:
		return t.Format(time.RFC3339Nano)
	}
}

func (w *walker) float(v reflect.Value, path string) (any, error) {
	f := v.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		switch w.opts.Floats {
		case FloatsString:
			switch {
			case math.IsNaN(f):
				return w.floats.NaN, nil
			case f > 0:
				return w.floats.PositiveInfinity, nil
			default:
				return w.floats.NegativeInfinity, nil
			}
		case FloatsNull:
			return nil, nil
		default:
			return nil, w.fail(v, path, fmt.Sprintf("non-conforming float %v", f), nil)
		}
	}
	if v.Kind() == reflect.Float32 {
		return float32(f), nil
	}
	return f, nil
}

func (w *walker) bytes(b []byte) any {
	switch w.opts.Bytes {
	case BytesHex:
		return hex.EncodeToString(b)
	case BytesArray:
		out := make([]any, len(b))
		for i, c := range b {
			out[i] = uint64(c)
		}
		return out
	default:
		return base64.StdEncoding.EncodeToString(b)
	}
}

func (w *walker) array(v reflect.Value, path string, depth int) (any, error) {
	out := make([]any, v.Len())
	for i := range v.Len() {
		elem, err := w.value(v.Index(i), fmt.Sprintf("%s[%d]", path, i), depth+1)
		if err != nil {
			return nil, err
		}
		out[i] = elem
	}
	return out, nil
}

func (w *walker) mapping(v reflect.Value, path string, depth int) (any, error) {
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := w.mapKey(iter.Key(), path)
		if err != nil {
			return nil, err
		}
		key = w.key(key)
		elem, err := w.value(iter.Value(), joinPath(path, key), depth+1)
		if err != nil {
			return nil, err
		}
		out[key] = elem
	}
	return out, nil
}

func (w *walker) mapKey(k reflect.Value, path string) (string, error) {
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	if tm, ok := k.Interface().(stdencoding.TextMarshaler); ok {
		if k.Kind() == reflect.Pointer && k.IsNil() {
			return "", nil
		}
		text, err := tm.MarshalText()
		if err != nil {
			return "", w.fail(k, path, "map key MarshalText failed", err)
		}
		return string(text), nil
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", w.fail(k, path, fmt.Sprintf("unsupported map key type %s", k.Type()), nil)
}

func (w *walker) object(v reflect.Value, path string, depth int) (any, error) {
	out := make(map[string]any)
	for _, f := range typeFields(v.Type()) {
		fv, err := v.FieldByIndexErr(f.index)
		if err != nil {
			// nil embedded pointer; its promoted fields are absent
			continue
		}
		if f.omitEmpty && isEmptyValue(fv) {
			continue
		}
		if f.omitZero && fv.IsZero() {
			continue
		}

		key := w.key(f.name)
		if f.quoted {
			if s, ok := quotedScalar(fv); ok {
				out[key] = s
				continue
			}
		}
		elem, err := w.value(fv, joinPath(path, key), depth+1)
		if err != nil {
			return nil, err
		}
		out[key] = elem
	}
	return out, nil
}

// rekey applies the key strategy to maps decoded from MarshalJSON output.
func (w *walker) rekey(tree any) any {
	if w.opts.Keys == KeysDefault {
		return tree
	}
	switch t := tree.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[w.key(k)] = w.rekey(v)
		}
		return out
	case []any:
		for i := range t {
			t[i] = w.rekey(t[i])
		}
		return t
	default:
		return tree
	}
}

func (w *walker) key(name string) string {
	if w.opts.Keys == KeysSnakeCase {
		return strcase.ToSnake(name)
	}
	return name
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}

func quotedScalar(v reflect.Value) (string, bool) {
	switch v.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64), true
	}
	return "", false
}

// field is one encoded struct field.
type field struct {
	name      string
	index     []int
	tagged    bool
	omitEmpty bool
	omitZero  bool
	quoted    bool
}

var fieldCache sync.Map // map[reflect.Type][]field

// typeFields returns the encoded fields of struct type t in declaration
// order. Promoted fields are resolved like encoding/json: the shallowest
// field of a name wins, a lone tagged field wins a tie at that depth, and
// any other tie drops the name.
func typeFields(t reflect.Type) []field {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]field)
	}
	actual, _ := fieldCache.LoadOrStore(t, resolveFields(collectFields(t)))
	return actual.([]field)
}

// collectFields walks t and its embedded structs breadth first and
// returns every candidate field. A name reachable twice through the same
// embedded type at one depth is listed twice so it cancels out.
func collectFields(t reflect.Type) []field {
	type queued struct {
		typ   reflect.Type
		index []int
	}

	var fields []field
	current := []queued{}
	next := []queued{{typ: t}}
	count := map[reflect.Type]int{}
	nextCount := map[reflect.Type]int{}
	visited := map[reflect.Type]bool{}

	for len(next) > 0 {
		current, next = next, current[:0]
		count, nextCount = nextCount, map[reflect.Type]int{}

		for _, q := range current {
			if visited[q.typ] {
				continue
			}
			visited[q.typ] = true

			for i := range q.typ.NumField() {
				sf := q.typ.Field(i)
				ft := sf.Type
				if ft.Name() == "" && ft.Kind() == reflect.Pointer {
					ft = ft.Elem()
				}
				if sf.Anonymous {
					if !sf.IsExported() && ft.Kind() != reflect.Struct {
						continue
					}
				} else if !sf.IsExported() {
					continue
				}

				tag := sf.Tag.Get("json")
				if tag == "-" {
					continue
				}
				name, opts, _ := strings.Cut(tag, ",")
				index := append(append([]int(nil), q.index...), i)

				if name != "" || !sf.Anonymous || ft.Kind() != reflect.Struct {
					f := field{
						name:      name,
						index:     index,
						tagged:    name != "",
						omitEmpty: hasOption(opts, "omitempty"),
						omitZero:  hasOption(opts, "omitzero"),
						quoted:    hasOption(opts, "string"),
					}
					if f.name == "" {
						f.name = sf.Name
					}
					fields = append(fields, f)
					if count[q.typ] > 1 {
						fields = append(fields, f)
					}
					continue
				}

				nextCount[ft]++
				if nextCount[ft] == 1 {
					next = append(next, queued{typ: ft, index: index})
				}
			}
		}
	}
	return fields
}

// resolveFields keeps the dominant field of every name and restores
// declaration order.
func resolveFields(fields []field) []field {
	slices.SortFunc(fields, func(a, b field) int {
		if c := strings.Compare(a.name, b.name); c != 0 {
			return c
		}
		if c := cmp.Compare(len(a.index), len(b.index)); c != 0 {
			return c
		}
		if a.tagged != b.tagged {
			if a.tagged {
				return -1
			}
			return 1
		}
		return slices.Compare(a.index, b.index)
	})

	out := fields[:0]
	for i := 0; i < len(fields); {
		j := i + 1
		for j < len(fields) && fields[j].name == fields[i].name {
			j++
		}
		group := fields[i:j]
		i = j
		if len(group) > 1 && len(group[0].index) == len(group[1].index) && group[0].tagged == group[1].tagged {
			continue
		}
		out = append(out, group[0])
	}

	slices.SortFunc(out, func(a, b field) int {
		return slices.Compare(a.index, b.index)
	})
	return out
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}
