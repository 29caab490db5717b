package encryption

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return []byte(strings.Repeat("k", 32))
}

func TestNewCodec(t *testing.T) {
	t.Run("valid key", func(t *testing.T) {
		c, err := NewCodec(testKey())
		require.NoError(t, err)
		assert.NotNil(t, c)
	})

	t.Run("short key", func(t *testing.T) {
		_, err := NewCodec([]byte("too-short"))
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestCodecRoundTrip(t *testing.T) {
	c, err := NewCodec(testKey())
	require.NoError(t, err)

	ciphertext, err := c.Encrypt("ya29.a0AfH6SMB-token")
	require.NoError(t, err)
	assert.NotEqual(t, "ya29.a0AfH6SMB-token", ciphertext)

	plaintext, err := c.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "ya29.a0AfH6SMB-token", plaintext)
}

func TestCodecDecryptErrors(t *testing.T) {
	c, err := NewCodec(testKey())
	require.NoError(t, err)

	t.Run("not base64", func(t *testing.T) {
		_, err := c.Decrypt("%%%not-base64%%%")
		assert.Error(t, err)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := c.Decrypt("YWJj")
		assert.ErrorIs(t, err, ErrCiphertextTooShort)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := NewCodec([]byte(strings.Repeat("x", 32)))
		require.NoError(t, err)

		ciphertext, err := c.Encrypt("secret")
		require.NoError(t, err)

		_, err = other.Decrypt(ciphertext)
		assert.Error(t, err)
	})
}
