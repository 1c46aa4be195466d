package encoding_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/analytics/pkg/analytics/encoding"
)

func TestEncodingFailureAction(t *testing.T) {
	boom := errors.New("boom")

	assert.NoError(t, encoding.FailureIgnore.Resolve(boom))
	assert.ErrorIs(t, encoding.FailureError.Resolve(boom), boom)
	assert.Equal(t, encoding.FailureError, encoding.EncodingFailureAction(0), "zero value reports errors")

	assert.Equal(t, "ignore", encoding.FailureIgnore.String())
	assert.Equal(t, "error", encoding.FailureError.String())
	assert.Equal(t, "EncodingFailureAction(9)", encoding.EncodingFailureAction(9).String())

	var a encoding.EncodingFailureAction
	require.NoError(t, a.UnmarshalText([]byte("Ignore")))
	assert.Equal(t, encoding.FailureIgnore, a)
	assert.Error(t, a.UnmarshalText([]byte("retry")))
	assert.Equal(t, encoding.FailureIgnore, a, "failed parse leaves the value untouched")

	text, err := encoding.FailureIgnore.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "ignore", string(text))
}

func TestEncoderFunc(t *testing.T) {
	var enc encoding.Encoder[string] = encoding.EncoderFunc[string](func(v any) (string, error) {
		return "encoded", nil
	})
	out, err := enc.EncodeMetadata(1)
	require.NoError(t, err)
	assert.Equal(t, "encoded", out)
}

func TestEncodingError(t *testing.T) {
	err := &encoding.EncodingError{Path: "a.b", Reason: "bad", Err: errors.New("inner")}
	assert.Equal(t, "encoding: invalid value at a.b: bad: inner", err.Error())
	assert.ErrorIs(t, err, encoding.ErrInvalidValue)

	root := &encoding.EncodingError{Reason: "bad"}
	assert.Equal(t, "encoding: invalid value: bad", root.Error())
}

func TestOptions_FromYAML(t *testing.T) {
	var opts encoding.Options
	doc := `
bytes: hex
dates: milliseconds
keys: snake_case
floats: string
float_strings:
  nan: not-a-number
formatting: pretty|no_escape_html
`
	require.NoError(t, yaml.Unmarshal([]byte(doc), &opts))

	assert.Equal(t, encoding.BytesHex, opts.Bytes)
	assert.Equal(t, encoding.DatesMillisecondsSince1970, opts.Dates)
	assert.Equal(t, encoding.KeysSnakeCase, opts.Keys)
	assert.Equal(t, encoding.FloatsString, opts.Floats)
	assert.Equal(t, "not-a-number", opts.FloatStrings.NaN)
	assert.Equal(t, encoding.FormatPretty|encoding.FormatNoEscapeHTML, opts.Formatting)
}

func TestStrategyParsing(t *testing.T) {
	var b encoding.BytesStrategy
	assert.Error(t, b.UnmarshalText([]byte("base32")))
	require.NoError(t, b.UnmarshalText([]byte("ARRAY")))
	assert.Equal(t, encoding.BytesArray, b)

	var d encoding.DateStrategy
	require.NoError(t, d.UnmarshalText([]byte("rfc3339")))
	assert.Equal(t, encoding.DatesRFC3339, d)

	var f encoding.FloatStrategy
	require.NoError(t, f.UnmarshalText([]byte("null")))
	assert.Equal(t, encoding.FloatsNull, f)

	var k encoding.KeyStrategy
	require.NoError(t, k.UnmarshalText([]byte("")))
	assert.Equal(t, encoding.KeysDefault, k)

	assert.Equal(t, "hex", encoding.BytesHex.String())
	assert.Equal(t, "seconds", encoding.DatesSecondsSince1970.String())
	assert.Equal(t, "DateStrategy(7)", encoding.DateStrategy(7).String())
}

func TestParseFormatting(t *testing.T) {
	f, err := encoding.ParseFormatting("compact")
	require.NoError(t, err)
	assert.Equal(t, encoding.OutputFormatting(0), f)
	assert.Equal(t, "compact", f.String())

	f, err = encoding.ParseFormatting("no_escape_html, pretty")
	require.NoError(t, err)
	assert.Equal(t, encoding.FormatPretty|encoding.FormatNoEscapeHTML, f)
	assert.Equal(t, "pretty|no_escape_html", f.String())

	_, err = encoding.ParseFormatting("sorted")
	assert.Error(t, err)
}

func TestOptions_YAMLRoundTrip(t *testing.T) {
	opts := encoding.Options{
		Bytes:      encoding.BytesArray,
		Dates:      encoding.DatesSecondsSince1970,
		Keys:       encoding.KeysSnakeCase,
		Floats:     encoding.FloatsNull,
		Formatting: encoding.FormatNoEscapeHTML,
	}
	out, err := yaml.Marshal(opts)
	require.NoError(t, err)
	assert.Contains(t, string(out), "dates: seconds")

	var back encoding.Options
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, opts, back)
}
