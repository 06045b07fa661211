package filesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 Bytes"},
		{1, "1 Bytes"},
		{1023, "1023 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1048576, "1 MB"},
		{1572864, "1.5 MB"},
		{1073741824, "1 GB"},
		{5 * 1099511627776, "5120 GB"},
		{-5, "0 Bytes"},
		{1234567, "1.18 MB"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Format(c.in), "Format(%d)", c.in)
	}
}

func TestReduction(t *testing.T) {
	assert.Equal(t, 50.0, Reduction(200, 100))
	assert.Equal(t, -10.0, Reduction(100, 110))
	assert.Equal(t, 0.0, Reduction(0, 10))
}
