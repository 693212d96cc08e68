package inference

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	request, err := DecodeRequest(strings.NewReader(`{"features":[0.1,0.2,0.3,0.4],"extra":"ignored"}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.4}, request.Features)
}

func TestDecodeRequestErrors(t *testing.T) {
	cases := map[string]string{
		"empty body":      "",
		"malformed":       `{"features":[0.1,`,
		"not an object":   `[0.1,0.2]`,
		"json null":       `null`,
		"missing key":     `{"invalid_key":[0.1,0.2]}`,
		"null features":   `{"features":null}`,
		"string features": `{"features":"0.1,0.2"}`,
		"string element":  `{"features":[0.1,"x"]}`,
		"ragged rows":     `{"features":[[0.1,0.2],[0.3]]}`,
		"deep nesting":    `{"features":[[[0.1,0.2]]]}`,
		"empty row":       `{"features":[[]]}`,
		"empty features":  `{"features":[]}`,
		"trailing data":   `{"features":[0.1,0.2,0.3,0.4]} trailing garbage`,
		"second object":   `{"features":[0.1]}{"features":[0.2]}`,
		"trailing brace":  `{"features":[0.1]}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRequest(strings.NewReader(body))
			require.Error(t, err)
			assert.NotEmpty(t, err.Error())
		})
	}
}

func TestDecodeRequestAllowsTrailingWhitespace(t *testing.T) {
	request, err := DecodeRequest(strings.NewReader("{\"features\":[1,2]}\n\t "))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, request.Features)
}

func TestDecodeRequestFlattensRows(t *testing.T) {
	request, err := DecodeRequest(strings.NewReader(`{"features":[[0.1,0.2,0.3,0.4]]}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.4}, request.Features)

	request, err = DecodeRequest(strings.NewReader(`{"features":[[1,2],[3,4]]}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, request.Features)
}

func TestDecodeRequestMissingFeaturesSentinel(t *testing.T) {
	_, err := DecodeRequest(strings.NewReader(`{"invalid_key":[0.1,0.2]}`))
	assert.ErrorIs(t, err, ErrMissingFeatures)
}

func TestDecodeRequestByteOrderMarks(t *testing.T) {
	utf8BOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"features":[1,2]}`)...)
	request, err := DecodeRequest(bytes.NewReader(utf8BOM))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, request.Features)

	utf16LE := []byte{0xFF, 0xFE}
	for _, r := range `{"features":[3]}` {
		utf16LE = append(utf16LE, byte(r), 0)
	}
	request, err = DecodeRequest(bytes.NewReader(utf16LE))
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, request.Features)
}

func TestReshapeSingleRow(t *testing.T) {
	features := []float64{1, 2, 3}
	batch := Reshape(features)
	require.Len(t, batch, 1)
	assert.Equal(t, features, batch[0])

	batch[0][0] = 9
	assert.Equal(t, 1.0, features[0])
}
