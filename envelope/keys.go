package envelope

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDF info strings, providing domain separation between the body
// encryption key and the request signing key. Changing either invalidates
// everything sealed under the old derivation path.
var (
	hkdfInfoBody = []byte("partner.envelope.body.v1")
	hkdfInfoSign = []byte("partner.envelope.sign.v1")
)

const keySize = 32

// deriveBodyKey derives the 32-byte AEAD key from the caller's shared API
// credential. Derived keys are never stored or logged; each call performs
// a fresh derivation.
func deriveBodyKey(sharedKey string) []byte {
	return derive([]byte(sharedKey), hkdfInfoBody)
}

// deriveSigningKey derives the MAC key from the shared credential and the
// caller's id token. The token digest is folded into the HKDF info so a
// signature is only valid for the identity it was produced under.
func deriveSigningKey(sharedKey, idToken string) []byte {
	tokenDigest := sha256.Sum256([]byte(idToken))
	info := make([]byte, len(hkdfInfoSign)+len(tokenDigest))
	copy(info, hkdfInfoSign)
	copy(info[len(hkdfInfoSign):], tokenDigest[:])
	return derive([]byte(sharedKey), info)
}

func derive(secret, info []byte) []byte {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, info), key); err != nil {
		// hkdf only errors when asked for more output than the hash
		// can produce; 32 bytes is far below that limit.
		panic(err)
	}
	return key
}
