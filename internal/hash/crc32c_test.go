package hash

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC32C_Castagnoli(t *testing.T) {
	assert.Equal(t, uint32(0xe3069283), CRC32C([]byte("123456789")))
	assert.Equal(t, uint32(0), CRC32C(nil))
}

func TestVerify(t *testing.T) {
	data := []byte("payload")
	require.NoError(t, Verify("payload", data, CRC32C(data)))

	err := Verify("payload", data, CRC32C(data)+1)
	require.Error(t, err)

	var mismatch *ErrChecksumMismatch
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "payload", mismatch.What)
}
