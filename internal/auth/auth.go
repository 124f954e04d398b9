// Package auth resolves request origins to the account allowed to act.
package auth

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"dexEngine/internal/dex"
)

// Supported authentication modes.
const (
	ModeTrusted   = "trusted"
	ModeSignature = "signature"
)

// Trusted accepts the account named by the origin. It is meant for replaying
// request files produced by a trusted frontend.
type Trusted struct{}

func (Trusted) Authenticate(origin dex.Origin) (common.Address, error) {
	if origin.Account == (common.Address{}) {
		return common.Address{}, dex.ErrBadOrigin.Wrap("missing account")
	}
	return origin.Account, nil
}

// Signature requires a 65 byte secp256k1 signature over keccak256(payload)
// recovering to the origin account. Signed origins must carry a nonce, which
// the payload is expected to cover, so a captured request cannot be replayed.
type Signature struct{}

func (Signature) Authenticate(origin dex.Origin) (common.Address, error) {
	if origin.Nonce == 0 {
		return common.Address{}, dex.ErrBadOrigin.Wrap("signed request without nonce")
	}
	if len(origin.Signature) != crypto.SignatureLength {
		return common.Address{}, dex.ErrBadOrigin.Wrapf("signature length %d", len(origin.Signature))
	}
	sig := append([]byte(nil), origin.Signature...)
	// Accept the legacy 27/28 recovery id.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(crypto.Keccak256(origin.Payload), sig)
	if err != nil {
		return common.Address{}, dex.ErrBadOrigin.Wrapf("recover signer: %s", err)
	}
	signer := crypto.PubkeyToAddress(*pub)
	if origin.Account != (common.Address{}) && signer != origin.Account {
		return common.Address{}, dex.ErrBadOrigin.Wrapf("signed by %s, not %s", signer.Hex(), origin.Account.Hex())
	}
	return signer, nil
}

// New returns the authenticator for mode.
func New(mode string) (dex.Authenticator, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeTrusted:
		return Trusted{}, nil
	case ModeSignature:
		return Signature{}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
}
