package dex

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCursorSized(t *testing.T) {
	p := &parser{data: []byte{0xff, 0x7f, 0x80, 0x00, 0x20, 0x40}}

	c := p.at(0)
	require.Equal(t, int64(-1), c.signed(1))
	require.Equal(t, int64(0x7f), c.signed(1))
	require.Equal(t, int64(0x80), c.signed(2))
	require.NoError(t, c.err)

	c = p.at(2)
	require.Equal(t, uint64(0x80), c.unsigned(2))

	c = p.at(4)
	bits := c.rightExtended(2, 4)
	require.Equal(t, float32(2.5), math.Float32frombits(uint32(bits)))

	c = p.at(5)
	c.unsigned(2)
	require.Error(t, c.err)
}

func TestReadValue(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want EncodedValue
	}{
		{"byte", []byte{0x00, 0xfd}, ByteValue(-3)},
		{"short sign extended", []byte{0x02, 0x80}, ShortValue(-128)},
		{"char zero extended", []byte{0x03, 0x80}, CharValue(0x80)},
		{"int two bytes", []byte{0x24, 0x00, 0x80}, IntValue(-32768)},
		{"long", []byte{0x26, 0xff, 0x7f}, LongValue(0x7fff)},
		{"float right extended", []byte{0x30, 0x80, 0x3f}, FloatValue(1)},
		{"double one byte", []byte{0x11, 0x40}, DoubleValue(2)},
		{"method type", []byte{0x15, 0x07}, MethodTypeValue{ProtoIndex: 7}},
		{"null", []byte{0x1e}, NullValue{}},
		{"true", []byte{0x3f}, BooleanValue(true)},
		{"false", []byte{0x1f}, BooleanValue(false)},
		{"empty array", []byte{0x1c, 0x00}, ArrayValue{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &parser{data: tt.data}
			c := p.at(0)
			v, err := p.readValue(c)
			require.NoError(t, err)
			require.Equal(t, tt.want, v)
			require.Equal(t, len(tt.data), c.pos)
		})
	}
}

func TestReadValueUnknownType(t *testing.T) {
	p := &parser{data: []byte{0x01, 0x00}}
	_, err := p.readValue(p.at(0))
	var unknown *UnknownValueTypeError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, byte(0x01), unknown.Tag)
}

func TestULEB128(t *testing.T) {
	p := &parser{data: []byte{0x00, 0x7f, 0x80, 0x7f, 0xe5, 0x8e, 0x26, 0x80, 0x80, 0x80, 0x80, 0x80}}
	c := p.at(0)
	require.Equal(t, uint32(0), c.uleb128())
	require.Equal(t, uint32(127), c.uleb128())
	require.Equal(t, uint32(16256), c.uleb128())
	require.Equal(t, uint32(624485), c.uleb128())
	require.NoError(t, c.err)
	c.uleb128()
	require.Error(t, c.err)
}

func TestDecodeMUTF8(t *testing.T) {
	// U+1F600 as a surrogate pair and NUL as C0 80
	data := []byte{'a', 0xc0, 0x80, 0xed, 0xa0, 0xbd, 0xed, 0xb8, 0x80, 0xd0, 0x96}
	s, err := decodeMUTF8(data, 5)
	require.NoError(t, err)
	require.Equal(t, "a\x00\U0001F600Ж", s)

	_, err = decodeMUTF8([]byte{0xe0, 0x80}, 1)
	require.Error(t, err)
}

func TestOversizedCounts(t *testing.T) {
	huge := []byte{0xff, 0xff, 0xff, 0xff}

	t.Run("array", func(t *testing.T) {
		p := &parser{data: []byte{0x1c, 0xff, 0xff, 0xff, 0xff, 0x0f, 0x1e}}
		_, err := p.readValue(p.at(0))
		require.ErrorContains(t, err, "exceeds the remaining data")
	})

	t.Run("type list", func(t *testing.T) {
		p := &parser{data: huge}
		_, err := p.readTypeList(0)
		require.ErrorContains(t, err, "exceeds the remaining data")
	})

	t.Run("annotation set", func(t *testing.T) {
		p := &parser{data: huge}
		_, err := p.readAnnotationSet(0)
		require.ErrorContains(t, err, "exceeds the remaining data")
	})

	t.Run("annotations directory methods", func(t *testing.T) {
		p := &parser{data: []byte{0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff, 0xff, 0xff, 0, 0, 0, 0}}
		_, _, err := p.readAnnotationsDirectory(0)
		require.ErrorContains(t, err, "exceeds the remaining data")
	})

	t.Run("class data", func(t *testing.T) {
		p := &parser{data: []byte{0x00, 0x00, 0xff, 0xff, 0xff, 0xff, 0x0f, 0x00}}
		err := p.readClassData(0, &ClassDef{}, nil)
		require.ErrorContains(t, err, "exceeds the remaining data")
	})

	t.Run("string length", func(t *testing.T) {
		s, err := decodeMUTF8([]byte("ab"), math.MaxInt32)
		require.NoError(t, err)
		require.Equal(t, "ab", s)
	})
}
