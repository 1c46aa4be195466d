package encoding

import (
	"fmt"
	"strings"
)

// BytesStrategy selects how []byte values are encoded.
type BytesStrategy int

const (
	// BytesBase64 encodes bytes as a standard base64 string.
	BytesBase64 BytesStrategy = iota
	// BytesHex encodes bytes as a lowercase hex string.
	BytesHex
	// BytesArray encodes bytes as an array of numbers.
	BytesArray
)

// DateStrategy selects how time.Time values are encoded.
type DateStrategy int

const (
	// DatesDeferred lets time.Time encode itself (RFC 3339 with nanoseconds).
	DatesDeferred DateStrategy = iota
	// DatesRFC3339 encodes times as RFC 3339 strings without fractional seconds.
	DatesRFC3339
	// DatesSecondsSince1970 encodes times as fractional Unix seconds.
	DatesSecondsSince1970
	// DatesMillisecondsSince1970 encodes times as fractional Unix milliseconds.
	DatesMillisecondsSince1970
)

// KeyStrategy selects how object keys are written.
type KeyStrategy int

const (
	// KeysDefault keeps keys as resolved from json tags and field names.
	KeysDefault KeyStrategy = iota
	// KeysSnakeCase converts keys to snake_case.
	KeysSnakeCase
)

// FloatStrategy selects how NaN and infinities are encoded.
type FloatStrategy int

const (
	// FloatsError fails encoding on NaN or infinity.
	FloatsError FloatStrategy = iota
	// FloatsString encodes NaN and infinities as strings.
	FloatsString
	// FloatsNull encodes NaN and infinities as null.
	FloatsNull
)

// OutputFormatting is a bitset of options for Marshal.
type OutputFormatting uint

const (
	// FormatPretty indents the output.
	FormatPretty OutputFormatting = 1 << iota
	// FormatNoEscapeHTML leaves <, > and & unescaped in strings.
	FormatNoEscapeHTML
)

// FloatStrings are the replacements used by FloatsString.
// Empty fields fall back to "Infinity", "-Infinity" and "NaN".
type FloatStrings struct {
	PositiveInfinity string `yaml:"positive_infinity" json:"positive_infinity"`
	NegativeInfinity string `yaml:"negative_infinity" json:"negative_infinity"`
	NaN              string `yaml:"nan" json:"nan"`
}

func (s FloatStrings) withDefaults() FloatStrings {
	if s.PositiveInfinity == "" {
		s.PositiveInfinity = "Infinity"
	}
	if s.NegativeInfinity == "" {
		s.NegativeInfinity = "-Infinity"
	}
	if s.NaN == "" {
		s.NaN = "NaN"
	}
	return s
}

// Options configures a DictionaryEncoder.
type Options struct {
	Bytes        BytesStrategy    `yaml:"bytes" json:"bytes"`
	Dates        DateStrategy     `yaml:"dates" json:"dates"`
	Keys         KeyStrategy      `yaml:"keys" json:"keys"`
	Floats       FloatStrategy    `yaml:"floats" json:"floats"`
	FloatStrings FloatStrings     `yaml:"float_strings" json:"float_strings"`
	Formatting   OutputFormatting `yaml:"formatting" json:"formatting"`
}

// DefaultOptions returns base64 bytes, self-encoded dates, unchanged
// keys, failing non-finite floats and pretty output.
func DefaultOptions() Options {
	return Options{
		Bytes:      BytesBase64,
		Dates:      DatesDeferred,
		Keys:       KeysDefault,
		Floats:     FloatsError,
		Formatting: FormatPretty,
	}
}

// Option configures Options.
type Option func(*Options)

// WithBytes sets the bytes strategy.
func WithBytes(s BytesStrategy) Option {
	return func(o *Options) { o.Bytes = s }
}

// WithDates sets the date strategy.
func WithDates(s DateStrategy) Option {
	return func(o *Options) { o.Dates = s }
}

// WithKeys sets the key strategy.
func WithKeys(s KeyStrategy) Option {
	return func(o *Options) { o.Keys = s }
}

// WithFloats sets the non-finite float strategy.
func WithFloats(s FloatStrategy) Option {
	return func(o *Options) { o.Floats = s }
}

// WithFloatStrings sets FloatsString with custom replacements.
func WithFloatStrings(s FloatStrings) Option {
	return func(o *Options) {
		o.Floats = FloatsString
		o.FloatStrings = s
	}
}

// WithFormatting sets the output formatting of Marshal.
func WithFormatting(f OutputFormatting) Option {
	return func(o *Options) { o.Formatting = f }
}

var (
	bytesNames  = []string{"base64", "hex", "array"}
	dateNames   = []string{"deferred", "rfc3339", "seconds", "milliseconds"}
	keyNames    = []string{"default", "snake_case"}
	floatNames  = []string{"error", "string", "null"}
	formatNames = []string{"pretty", "no_escape_html"}
)

func enumString(names []string, v int, kind string) string {
	if v >= 0 && v < len(names) {
		return names[v]
	}
	return fmt.Sprintf("%s(%d)", kind, v)
}

func parseEnum(names []string, text []byte, kind string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	if s == "" {
		return 0, nil
	}
	for i, name := range names {
		if s == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q (want one of %s)", kind, text, strings.Join(names, ", "))
}

func (s BytesStrategy) String() string { return enumString(bytesNames, int(s), "BytesStrategy") }
func (s DateStrategy) String() string  { return enumString(dateNames, int(s), "DateStrategy") }
func (s KeyStrategy) String() string   { return enumString(keyNames, int(s), "KeyStrategy") }
func (s FloatStrategy) String() string { return enumString(floatNames, int(s), "FloatStrategy") }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *BytesStrategy) UnmarshalText(text []byte) error {
	v, err := parseEnum(bytesNames, text, "bytes strategy")
	if err != nil {
		return err
	}
	*s = BytesStrategy(v)
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *DateStrategy) UnmarshalText(text []byte) error {
	v, err := parseEnum(dateNames, text, "date strategy")
	if err != nil {
		return err
	}
	*s = DateStrategy(v)
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *KeyStrategy) UnmarshalText(text []byte) error {
	v, err := parseEnum(keyNames, text, "key strategy")
	if err != nil {
		return err
	}
	*s = KeyStrategy(v)
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *FloatStrategy) UnmarshalText(text []byte) error {
	v, err := parseEnum(floatNames, text, "float strategy")
	if err != nil {
		return err
	}
	*s = FloatStrategy(v)
	return nil
}

// ParseFormatting parses formatting names separated by "|" or ",".
// "compact" and "none" stand for no options.
func ParseFormatting(s string) (OutputFormatting, error) {
	var f OutputFormatting
	for _, field := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		name := strings.ToLower(strings.TrimSpace(field))
		if name == "" || name == "compact" || name == "none" {
			continue
		}
		i, err := parseEnum(formatNames, []byte(name), "output formatting")
		if err != nil {
			return 0, err
		}
		f |= 1 << i
	}
	return f, nil
}

// String renders f as names joined by "|", "compact" when empty.
func (f OutputFormatting) String() string {
	if f == 0 {
		return "compact"
	}
	var parts []string
	for i, name := range formatNames {
		if f&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *OutputFormatting) UnmarshalText(text []byte) error {
	parsed, err := ParseFormatting(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (f OutputFormatting) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// MarshalText implements encoding.TextMarshaler.
func (s BytesStrategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// MarshalText implements encoding.TextMarshaler.
func (s DateStrategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// MarshalText implements encoding.TextMarshaler.
func (s KeyStrategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// MarshalText implements encoding.TextMarshaler.
func (s FloatStrategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
