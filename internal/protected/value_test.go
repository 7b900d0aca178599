package protected

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromString_RoundTrip(t *testing.T) {
	v := FromString("correct horse battery staple")

	assert.Equal(t, "correct horse battery staple", v.Text())
	assert.Equal(t, 28, v.Len())
	assert.False(t, v.IsEmpty())
}

func TestFromString_MasksPlaintext(t *testing.T) {
	v := FromString("hunter2hunter2")

	assert.False(t, bytes.Contains(v.masked, []byte("hunter2")))
}

func TestFromString_Empty(t *testing.T) {
	v := FromString("")

	assert.True(t, v.IsEmpty())
	assert.Equal(t, "", v.Text())
	assert.Nil(t, v.Bytes())
}

func TestNilValue(t *testing.T) {
	var v *Value

	assert.True(t, v.IsEmpty())
	assert.Equal(t, "", v.Text())
	v.Wipe()
}

func TestFromBytes_CopiesInput(t *testing.T) {
	in := []byte("secret")
	v := FromBytes(in)
	clear(in)

	assert.Equal(t, "secret", v.Text())
}

func TestEqual(t *testing.T) {
	a := FromString("pw")
	b := FromString("pw")
	c := FromString("other")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, FromString("").Equal(nil))
}

func TestWipe(t *testing.T) {
	v := FromString("pw")
	v.Wipe()

	assert.True(t, v.IsEmpty())
	assert.Equal(t, "", v.Text())
}

func TestValue_NeverFormatted(t *testing.T) {
	v := FromString("top-secret")

	assert.NotContains(t, fmt.Sprintf("%v", v), "top-secret")

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("opening", "password", v)
	assert.NotContains(t, buf.String(), "top-secret")
	assert.Contains(t, buf.String(), "REDACTED")
}
