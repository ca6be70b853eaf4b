package usecase

import (
	"fmt"

	"blockconnect/pkg/apperr"
	"blockconnect/pkg/contract"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignInMessage is the text the wallet signs with personal_sign.
func SignInMessage(nonce string) string {
	return "Sign in to BlockConnect\nNonce: " + nonce
}

// RecoverAddress returns the address that produced an EIP-191 personal
// signature over message. Both 0/1 and 27/28 recovery ids are accepted.
func RecoverAddress(message, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("malformed signature: %w", apperr.ErrInvalidInput)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("signature must be %d bytes: %w", crypto.SignatureLength, apperr.ErrInvalidInput)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("unrecoverable signature: %w", apperr.ErrUnauthorized)
	}
	return contract.NormalizeAddress(crypto.PubkeyToAddress(*pub).Hex())
}
