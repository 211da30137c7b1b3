package imagefile

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_RoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x00},
		{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
		bytes.Repeat([]byte{0xff, 0x00, 0x7f}, 1000),
	}
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	inputs = append(inputs, all)

	for _, in := range inputs {
		encoded, err := Encode(context.Background(), bytes.NewReader(in), "image/png")
		require.NoError(t, err)
		assert.NotContains(t, encoded, "data:")
		assert.NotContains(t, encoded, ",")

		out, err := Decode(encoded)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(in, out))
	}
}

func TestStripDataURIHeader(t *testing.T) {
	assert.Equal(t, "QUJD", StripDataURIHeader("data:image/png;base64,QUJD"))
	assert.Equal(t, "QUJD", StripDataURIHeader("QUJD"))
	assert.Equal(t, "", StripDataURIHeader("data:image/png;base64"))
}

func TestDecode_AcceptsDataURI(t *testing.T) {
	out, err := Decode(DataURI("image/jpeg", []byte("abc")))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), out)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestEncode_ReadError(t *testing.T) {
	_, err := Encode(context.Background(), failingReader{}, "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestEncode_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Encode(ctx, bytes.NewReader([]byte("x")), "image/png")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncodeImage(t *testing.T) {
	img := &Image{Data: []byte("hello"), MIMEType: "image/png", Size: 5}
	encoded, err := EncodeImage(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8=", encoded)

	_, err = EncodeImage(context.Background(), nil)
	assert.Error(t, err)
}
