package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeShape(t *testing.T) {
	codec := NewPathCodec("food-posts")

	p := codec.Encode("user_123", "dinner.jpg")

	parts := strings.SplitN(p, "/", 2)
	require.Len(t, parts, 2)
	assert.Equal(t, "user_123", parts[0])
	assert.True(t, strings.HasSuffix(parts[1], ".jpg"))
	assert.NotEqual(t, "dinner.jpg", parts[1], "file name must be regenerated, not reused")
}

func TestEncodeUniquePerCall(t *testing.T) {
	codec := NewPathCodec("food-posts")

	a := codec.Encode("u1", "photo.png")
	b := codec.Encode("u1", "photo.png")

	assert.NotEqual(t, a, b)
}

func TestEncodeWithoutExtension(t *testing.T) {
	codec := NewPathCodec("food-posts")

	p := codec.Encode("u1", "photo")

	assert.NotContains(t, p[strings.Index(p, "/")+1:], ".")
}

func TestDecodeRoundTrip(t *testing.T) {
	codec := NewPathCodec("food-posts")
	key := codec.Encode("user_2abc", "ramen night.jpeg")

	store, err := NewMinioStorage("localhost:9000", "k", "s", "food-posts", "http://localhost:9000", false)
	require.NoError(t, err)

	decoded := codec.Decode(store.PublicURL(key))
	assert.Equal(t, key, decoded)
	assert.True(t, strings.HasSuffix(decoded, ".jpeg"))
}

func TestDecodePercentEncodedSegments(t *testing.T) {
	codec := NewPathCodec("food-posts")

	got := codec.Decode("https://abc.supabase.co/storage/v1/object/public/food-posts/user%201/caf%C3%A9.jpg")

	assert.Equal(t, "user 1/café.jpg", got)
}

func TestDecodeForeignURL(t *testing.T) {
	codec := NewPathCodec("food-posts")

	assert.Empty(t, codec.Decode("https://example.com/images/pizza.jpg"))
	assert.Empty(t, codec.Decode("https://cdn.example.com/other-bucket/u1/f.jpg"))
}

func TestDecodeMalformedInput(t *testing.T) {
	codec := NewPathCodec("food-posts")

	assert.Empty(t, codec.Decode(""))
	assert.Empty(t, codec.Decode("::not a url::"))
	assert.Empty(t, codec.Decode("http://host/food-posts"), "bucket with no trailing path has no object")
}
