package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

type Signature struct {
	Data []byte
}

// Sign takes in private key and message. Returns a signature for that message.
func Sign(privatekey string, msg []byte) (*Signature, error) {
	privateKey, err := crypto.HexToECDSA(privatekey)
	if err != nil {
		return nil, err
	}

	hash := crypto.Keccak256Hash(msg)

	sig, err := crypto.Sign(hash.Bytes(), privateKey)
	if err != nil {
		return nil, err
	}

	return &Signature{
		Data: sig,
	}, nil
}

// Verify verifies signatures
func Verify(sig *Signature, privatekey string, msg []byte) (bool, error) {
	if sig == nil || len(sig.Data) != crypto.SignatureLength {
		return false, fmt.Errorf("invalid signature length")
	}
	_, publicKeyECDSA, err := ToPublic(privatekey)
	if err != nil {
		return false, err
	}

	publicKeyBytes := crypto.FromECDSAPub(publicKeyECDSA)
	hash := crypto.Keccak256Hash(msg)
	signature := sig.Data

	signatureNoRecoverID := signature[:len(signature)-1]
	verified := crypto.VerifySignature(publicKeyBytes, hash.Bytes(), signatureNoRecoverID)

	return verified, nil
}

// SignPersonal signs keccak256(msg) with the Ethereum personal message prefix, the
// way browser wallets sign provider requests. The recovery id is shifted to 27/28.
func SignPersonal(privatekey string, msg string) (string, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privatekey, "0x"))
	if err != nil {
		return "", err
	}
	hash := crypto.Keccak256([]byte(msg))
	sig, err := crypto.Sign(accounts.TextHash(hash), privateKey)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// RecoverPersonal returns the address that produced a SignPersonal signature.
func RecoverPersonal(signature string, msg string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", err
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("invalid signature length: %d", len(sig))
	}
	sig[crypto.RecoveryIDOffset] -= 27
	hash := crypto.Keccak256([]byte(msg))
	pub, err := crypto.SigToPub(accounts.TextHash(hash), sig)
	if err != nil {
		return "", err
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// ToPublic converts private key to public key
func ToPublic(priv string) (string, *ecdsa.PublicKey, error) {
	if priv == "" || len(strings.TrimSpace(priv)) == 0 {
		return "nil", nil, fmt.Errorf("invalid private key")
	}

	privateKeyBytes, err := hex.DecodeString(strings.TrimPrefix(priv, "0x"))
	if err != nil {
		return "", nil, err
	}

	privateKey, err := crypto.ToECDSA(privateKeyBytes)
	if err != nil {
		return "", nil, err
	}

	publicKey := privateKey.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return "", nil, fmt.Errorf("cannot assert type: publicKey is not of type *ecdsa.PublicKey")
	}

	publicKeyBytes := crypto.FromECDSAPub(publicKeyECDSA)
	publicK := hexutil.Encode(publicKeyBytes)[4:]
	return publicK, publicKeyECDSA, nil
}

// ToAddress derives the checksummed account address of a private key.
func ToAddress(priv string) (common.Address, error) {
	_, pub, err := ToPublic(priv)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
