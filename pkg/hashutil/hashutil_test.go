package hashutil_test

import (
	"testing"

	"github.com/rohmanhakim/docs-link-crawler/pkg/hashutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashBytes_SHA256(t *testing.T) {
	got, err := hashutil.HashBytes([]byte("abc"), hashutil.HashAlgoSHA256)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", got)
}

func TestHashBytes_BLAKE3(t *testing.T) {
	got, err := hashutil.HashBytes([]byte("abc"), hashutil.HashAlgoBLAKE3)
	require.NoError(t, err)
	assert.Len(t, got, 64)

	again, err := hashutil.HashBytes([]byte("abc"), hashutil.HashAlgoBLAKE3)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	other, err := hashutil.HashBytes([]byte("abd"), hashutil.HashAlgoBLAKE3)
	require.NoError(t, err)
	assert.NotEqual(t, got, other)
}

func TestHashBytes_UnsupportedAlgo(t *testing.T) {
	_, err := hashutil.HashBytes([]byte("abc"), hashutil.HashAlgo("md5"))
	assert.Error(t, err)
}

func TestShortHash(t *testing.T) {
	full, err := hashutil.HashBytes([]byte("https://docs.atlan.com/"), hashutil.HashAlgoBLAKE3)
	require.NoError(t, err)

	short, err := hashutil.ShortHash([]byte("https://docs.atlan.com/"), hashutil.HashAlgoBLAKE3, 12)
	require.NoError(t, err)
	assert.Equal(t, full[:12], short)

	whole, err := hashutil.ShortHash([]byte("x"), hashutil.HashAlgoSHA256, 0)
	require.NoError(t, err)
	assert.Len(t, whole, 64)
}
