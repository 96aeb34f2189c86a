package payment

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

var (
	errPEMDecode = errors.New("payment: key is not valid PEM")
	errNotRSA    = errors.New("payment: key is not an RSA public key")
)

// KeyProvider supplies the provider public key for signature checks.
type KeyProvider interface {
	Get(ctx context.Context) (string, bool)
}

// Verifier checks WATA webhook signatures: RSA PKCS#1 v1.5 over the SHA-512
// digest of the raw payload bytes. Verification always runs against the
// bytes exactly as received; re-serialized JSON is not byte-stable and
// would break valid signatures.
type Verifier struct {
	Keys   KeyProvider
	Logger zerolog.Logger
}

// Verify reports whether the base64 signature matches the payload. Every
// failure path (absent key, bad PEM, malformed base64, digest mismatch)
// returns false and is logged; the method never fails upward.
func (v *Verifier) Verify(ctx context.Context, payload []byte, signature string) bool {
	if v == nil || v.Keys == nil {
		return false
	}
	pemText, ok := v.Keys.Get(ctx)
	if !ok {
		v.Logger.Warn().Msg("wata public key unavailable, rejecting webhook")
		return false
	}
	pub, err := parseRSAPublicKey(pemText)
	if err != nil {
		v.Logger.Error().Err(err).Msg("parse wata public key")
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		v.Logger.Warn().Err(err).Msg("decode webhook signature")
		return false
	}
	digest := sha512.Sum512(payload)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA512, digest[:], sig); err != nil {
		v.Logger.Warn().Msg("invalid wata webhook signature")
		return false
	}
	return true
}

func parseRSAPublicKey(pemText string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, errPEMDecode
	}
	if block.Type == "RSA PUBLIC KEY" {
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errNotRSA
	}
	return pub, nil
}
