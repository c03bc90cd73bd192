package cryptox

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/openpgp"
	pgperrors "golang.org/x/crypto/openpgp/errors"

	// Registers RIPEMD160 with crypto. Keyrings routinely advertise it as
	// a candidate hash and openpgp.Encrypt refuses to run when any
	// advertised hash is unavailable.
	_ "golang.org/x/crypto/ripemd160"

	"github.com/gpgcloud/gpgcloud/internal/common"
)

// OpenPGP encrypts and decrypts using GPG-compatible keyrings. Recipients
// are matched against key identities (name/email) or the hex key id of the
// primary key. The adapter only reads key material.
type OpenPGP struct {
	public  openpgp.EntityList
	private openpgp.EntityList
}

// NewOpenPGP reads armored keyrings. privateKeyring may be nil for an
// encrypt-only adapter. Private keys protected by a passphrase are unlocked
// once at construction time.
func NewOpenPGP(publicKeyring io.Reader, privateKeyring io.Reader, passphrase []byte) (*OpenPGP, error) {
	public, err := openpgp.ReadArmoredKeyRing(publicKeyring)
	if err != nil {
		return nil, fmt.Errorf("%w: reading public keyring: %v", common.ErrKeyUnavailable, err)
	}

	var private openpgp.EntityList
	if privateKeyring != nil {
		private, err = openpgp.ReadArmoredKeyRing(privateKeyring)
		if err != nil {
			return nil, fmt.Errorf("%w: reading private keyring: %v", common.ErrKeyUnavailable, err)
		}
		if err := unlockEntities(private, passphrase); err != nil {
			return nil, err
		}
	}

	return &OpenPGP{public: public, private: private}, nil
}

// NewOpenPGPFromEntities wraps already-parsed keyrings. Used by callers that
// manage key material themselves and by tests with generated keys.
func NewOpenPGPFromEntities(public, private openpgp.EntityList) *OpenPGP {
	return &OpenPGP{public: public, private: private}
}

func unlockEntities(keyring openpgp.EntityList, passphrase []byte) error {
	for _, e := range keyring {
		if e.PrivateKey != nil && e.PrivateKey.Encrypted {
			if err := e.PrivateKey.Decrypt(passphrase); err != nil {
				return fmt.Errorf("%w: unlocking private key %X: %v",
					common.ErrKeyUnavailable, e.PrimaryKey.KeyId, err)
			}
		}
		for _, sub := range e.Subkeys {
			if sub.PrivateKey != nil && sub.PrivateKey.Encrypted {
				if err := sub.PrivateKey.Decrypt(passphrase); err != nil {
					return fmt.Errorf("%w: unlocking subkey %X: %v",
						common.ErrKeyUnavailable, sub.PublicKey.KeyId, err)
				}
			}
		}
	}
	return nil
}

// findEntity resolves a recipient to a public entity. Matching follows gpg
// conventions loosely: an exact or suffix match on the primary key id in
// hex, or a substring match on any user identity.
func (p *OpenPGP) findEntity(recipient string) (*openpgp.Entity, error) {
	needle := strings.ToUpper(strings.TrimPrefix(recipient, "0x"))
	for _, e := range p.public {
		keyID := fmt.Sprintf("%016X", e.PrimaryKey.KeyId)
		if strings.HasSuffix(keyID, needle) {
			return e, nil
		}
		for name := range e.Identities {
			if strings.Contains(name, recipient) {
				return e, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no public key for %q", common.ErrKeyUnavailable, recipient)
}

func (p *OpenPGP) Encrypt(plaintext []byte, recipient string) ([]byte, error) {
	entity, err := p.findEntity(recipient)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w, err := openpgp.Encrypt(&buf, []*openpgp.Entity{entity}, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncryptionFailed, err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncryptionFailed, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEncryptionFailed, err)
	}
	return buf.Bytes(), nil
}

func (p *OpenPGP) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(p.private) == 0 {
		return nil, fmt.Errorf("%w: no private keyring loaded", common.ErrDecryptionFailed)
	}

	md, err := openpgp.ReadMessage(bytes.NewReader(ciphertext), p.private, nil, nil)
	if err != nil {
		return nil, mapPGPError(err)
	}

	// Integrity failures (MDC mismatch) surface while draining the body.
	plaintext, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		return nil, mapPGPError(err)
	}
	return plaintext, nil
}

func mapPGPError(err error) error {
	var sigErr pgperrors.SignatureError
	if errors.As(err, &sigErr) {
		return fmt.Errorf("%w: %v", common.ErrIntegrityViolation, err)
	}
	if errors.Is(err, pgperrors.ErrKeyIncorrect) {
		return fmt.Errorf("%w: no usable private key: %v", common.ErrDecryptionFailed, err)
	}
	return fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
}
