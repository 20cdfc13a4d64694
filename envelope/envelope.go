package envelope

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/jrsteele09/go-partner-client/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Version is the format version byte prepended to every encrypted body.
// It is authenticated as part of the AAD, so tampering with it fails
// decryption.
const Version byte = 0x01

// Overhead is the fixed byte overhead of an encrypted body:
// 1 (version) + 24 (XChaCha20-Poly1305 nonce) + 16 (Poly1305 tag).
const Overhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// EncryptedBody is the encrypted request or response payload as it appears
// on the wire. XData carries the [version | nonce | ciphertext+tag] blob,
// base64 encoded. XTime is the millisecond timestamp embedded at sealing
// time; it is authenticated with the ciphertext, so the two cannot be
// re-paired after the fact.
type EncryptedBody struct {
	XData string `json:"xdata"`
	XTime int64  `json:"xtime"`
}

// SignedEnvelope is the complete wire form of an outbound request: the
// encrypted body plus the signature material the transport headers carry.
type SignedEnvelope struct {
	EncryptedBody EncryptedBody
	Signature     string    // hex HMAC-SHA256 over the canonical request string
	SignatureTime int64     // XTime truncated to seconds
	RequestID     string    // fresh UUID per Seal
	ClientTime    time.Time // wall-clock time at sealing
}

// Seal serializes body to canonical JSON, encrypts it under a key derived
// from sharedKey, and signs the result. The signature covers the HTTP
// method, the request path, the second-granularity signing time and a
// digest of the ciphertext, keyed by material derived from sharedKey and
// idToken. Two Seal calls for the same body at different times produce
// different signatures and different request ids.
func Seal(method, path, idToken string, body any, sharedKey string) (*SignedEnvelope, error) {
	if sharedKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidEnvelope, "[Seal] shared key is empty")
	}

	plaintext, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("[Seal] marshal body: %w", err)
	}

	now := NowTimeFunc()
	xtime := now.UnixMilli()

	blob, err := encrypt(plaintext, sharedKey, xtime)
	if err != nil {
		return nil, err
	}

	signature := sign(method, path, xtime, blob, sharedKey, idToken)

	return &SignedEnvelope{
		EncryptedBody: EncryptedBody{
			XData: base64.StdEncoding.EncodeToString(blob),
			XTime: xtime,
		},
		Signature:     signature,
		SignatureTime: xtime / 1000,
		RequestID:     uuid.New().String(),
		ClientTime:    now,
	}, nil
}

// Open decrypts an encrypted body with the same sharedKey used to seal it
// and returns the canonical plaintext. Any failure (wrong key, corrupted
// ciphertext, tampered timestamp, malformed blob) is returned as a
// *DecodeError; callers must treat it as "response unusable", not as a
// business error.
func Open(body EncryptedBody, sharedKey string) (json.RawMessage, error) {
	blob, err := base64.StdEncoding.DecodeString(body.XData)
	if err != nil {
		return nil, &DecodeError{Op: "decode", Err: err}
	}
	if len(blob) < Overhead {
		return nil, &DecodeError{
			Op:  "decode",
			Err: fmt.Errorf("%w: blob is %d bytes, minimum is %d", errors.ErrInvalidEnvelope, len(blob), Overhead),
		}
	}
	if blob[0] != Version {
		return nil, &DecodeError{
			Op:  "decode",
			Err: fmt.Errorf("%w: version %d", errors.ErrUnsupportedVersion, blob[0]),
		}
	}

	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	ciphertext := blob[1+chacha20poly1305.NonceSizeX:]

	aead, err := chacha20poly1305.NewX(deriveBodyKey(sharedKey))
	if err != nil {
		return nil, &DecodeError{Op: "decrypt", Err: err}
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, buildAAD(Version, body.XTime))
	if err != nil {
		return nil, &DecodeError{Op: "decrypt", Err: err}
	}
	return plaintext, nil
}

// Verify recomputes the signature of a sealed envelope and compares it in
// constant time. A mismatch means the method, path, signing time or
// ciphertext no longer match what was signed.
func Verify(method, path string, env *SignedEnvelope, idToken, sharedKey string) error {
	blob, err := base64.StdEncoding.DecodeString(env.EncryptedBody.XData)
	if err != nil {
		return errors.Wrapf(err, "[Verify] decode body")
	}

	expected := sign(method, path, env.EncryptedBody.XTime, blob, sharedKey, idToken)
	if !hmac.Equal([]byte(expected), []byte(env.Signature)) {
		return errors.ErrSignatureMismatch
	}
	if env.SignatureTime != env.EncryptedBody.XTime/1000 {
		return errors.Wrapf(errors.ErrSignatureMismatch, "[Verify] signature time disagrees with body time")
	}
	return nil
}

func encrypt(plaintext []byte, sharedKey string, xtime int64) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(deriveBodyKey(sharedKey))
	if err != nil {
		return nil, fmt.Errorf("[encrypt] creating cipher: %w", err)
	}

	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("[encrypt] generating nonce: %w", err)
	}

	blob := make([]byte, 1+chacha20poly1305.NonceSizeX, 1+chacha20poly1305.NonceSizeX+len(plaintext)+aead.Overhead())
	blob[0] = Version
	copy(blob[1:], nonce[:])

	return aead.Seal(blob, nonce[:], plaintext, buildAAD(Version, xtime)), nil
}

// sign builds the canonical request string and MACs it. The signing time
// is truncated to seconds; the ciphertext is represented by its SHA-256
// digest so the string stays bounded.
func sign(method, path string, xtime int64, blob []byte, sharedKey, idToken string) string {
	bodyDigest := sha256.Sum256(blob)

	canonical := strings.Join([]string{
		strings.ToUpper(method),
		path,
		strconv.FormatInt(xtime/1000, 10),
		hex.EncodeToString(bodyDigest[:]),
	}, "\n")

	mac := hmac.New(sha256.New, deriveSigningKey(sharedKey, idToken))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// buildAAD binds the version byte and the millisecond timestamp to the
// ciphertext. Flipping either fails authentication on Open.
func buildAAD(version byte, xtime int64) []byte {
	aad := make([]byte, 9)
	aad[0] = version
	binary.BigEndian.PutUint64(aad[1:], uint64(xtime))
	return aad
}
