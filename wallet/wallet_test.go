package wallet

import (
	"context"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func newTestWallet(t *testing.T) *LocalWallet {
	ks, err := OpenOrInitKeystore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ks.Close() })
	w, err := NewWallet(ks)
	require.NoError(t, err)
	return w
}

func TestWalletImportExportDelete(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t)

	addr, err := w.WalletImport(ctx, &KeyInfo{PrivateKey: "0x" + testKey + "\n"})
	require.NoError(t, err)
	expected, err := ToAddress(testKey)
	require.NoError(t, err)
	assert.Equal(t, expected.Hex(), addr)

	_, err = w.WalletImport(ctx, &KeyInfo{PrivateKey: testKey})
	assert.ErrorIs(t, err, ErrKeyExists)

	ki, err := w.WalletExport(ctx, strings.ToLower(addr))
	require.NoError(t, err)
	assert.Equal(t, testKey, ki.PrivateKey)

	addrs, err := w.AddressList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{addr}, addrs)

	require.NoError(t, w.WalletDelete(ctx, addr))
	addrs, err = w.AddressList(ctx)
	require.NoError(t, err)
	assert.Empty(t, addrs)
}

func TestWalletNewSignVerify(t *testing.T) {
	ctx := context.Background()
	w := newTestWallet(t)

	addr, err := w.WalletNew(ctx)
	require.NoError(t, err)

	sig, err := w.WalletSign(ctx, addr, []byte("hello"))
	require.NoError(t, err)
	sigBytes, err := hexutil.Decode(sig)
	require.NoError(t, err)

	ok, err := w.WalletVerify(ctx, addr, sigBytes, "hello")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.WalletVerify(ctx, addr, sigBytes, "other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWalletRejectsInvalidAddress(t *testing.T) {
	w := newTestWallet(t)
	_, err := w.WalletSign(context.Background(), "not-an-address", []byte("x"))
	assert.Error(t, err)
}

func TestSignPersonalRecover(t *testing.T) {
	msg := "0xabc" + "did:op:1" + "2"
	sig, err := SignPersonal("0x"+testKey, msg)
	require.NoError(t, err)

	raw, err := hexutil.Decode(sig)
	require.NoError(t, err)
	require.Len(t, raw, 65)
	assert.Contains(t, []byte{27, 28}, raw[64])

	addr, err := RecoverPersonal(sig, msg)
	require.NoError(t, err)
	expected, err := ToAddress(testKey)
	require.NoError(t, err)
	assert.Equal(t, expected.Hex(), addr)

	other, err := RecoverPersonal(sig, msg+"x")
	require.NoError(t, err)
	assert.NotEqual(t, expected.Hex(), other)
}
