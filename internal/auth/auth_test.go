package auth

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"dexEngine/internal/dex"
)

func TestTrusted(t *testing.T) {
	account := common.HexToAddress("0x1234")
	got, err := Trusted{}.Authenticate(dex.Origin{Account: account})
	require.NoError(t, err)
	require.Equal(t, account, got)

	_, err = Trusted{}.Authenticate(dex.Origin{})
	require.ErrorIs(t, err, dex.ErrBadOrigin)
}

func TestSignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	account := crypto.PubkeyToAddress(key.PublicKey)

	payload := []byte(`{"op":"swap","account":"` + account.Hex() + `"}`)
	sig, err := crypto.Sign(crypto.Keccak256(payload), key)
	require.NoError(t, err)

	got, err := Signature{}.Authenticate(dex.Origin{Account: account, Nonce: 1, Payload: payload, Signature: sig})
	require.NoError(t, err)
	require.Equal(t, account, got)

	legacy := append([]byte(nil), sig...)
	legacy[crypto.RecoveryIDOffset] += 27
	got, err = Signature{}.Authenticate(dex.Origin{Nonce: 1, Payload: payload, Signature: legacy})
	require.NoError(t, err)
	require.Equal(t, account, got)
}

func TestSignatureRejects(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	payload := []byte("payload")
	sig, err := crypto.Sign(crypto.Keccak256(payload), key)
	require.NoError(t, err)

	_, err = Signature{}.Authenticate(dex.Origin{Nonce: 1, Payload: payload, Signature: sig[:10]})
	require.ErrorIs(t, err, dex.ErrBadOrigin)

	other := common.HexToAddress("0xdead")
	_, err = Signature{}.Authenticate(dex.Origin{Account: other, Nonce: 1, Payload: payload, Signature: sig})
	require.ErrorIs(t, err, dex.ErrBadOrigin)

	_, err = Signature{}.Authenticate(dex.Origin{Account: crypto.PubkeyToAddress(key.PublicKey), Nonce: 1, Payload: []byte("tampered"), Signature: sig})
	require.ErrorIs(t, err, dex.ErrBadOrigin)

	_, err = Signature{}.Authenticate(dex.Origin{Payload: payload, Signature: sig})
	require.ErrorIs(t, err, dex.ErrBadOrigin)
}

func TestNew(t *testing.T) {
	a, err := New("Signature")
	require.NoError(t, err)
	require.IsType(t, Signature{}, a)

	a, err = New("")
	require.NoError(t, err)
	require.IsType(t, Trusted{}, a)

	_, err = New("oauth")
	require.Error(t, err)
}
