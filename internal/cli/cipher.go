package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/gpgcloud/gpgcloud/internal/cryptox"
	"github.com/gpgcloud/gpgcloud/internal/envelope"
	"github.com/gpgcloud/gpgcloud/internal/shared"
)

// readPassword is a test seam for term.ReadPassword.
// In tests you can replace it with a stub to avoid touching the terminal.
var readPassword = term.ReadPassword

func (a *App) suiteID() uint8 {
	if a.config.CipherSuite == "aesgcm" {
		return envelope.AlgoAESGCM
	}
	return envelope.AlgoOpenPGP
}

// buildCipher constructs the configured crypto adapter. For openpgp with
// needPrivate set, the private keyring is loaded and its passphrase is
// prompted for without echo.
func (a *App) buildCipher(needPrivate bool) (cryptox.Cipher, error) {
	switch a.config.CipherSuite {
	case "aesgcm":
		key, err := os.ReadFile(a.config.AESKeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading aes key file: %w", err)
		}
		return cryptox.NewAESGCM(map[string][]byte{a.config.Recipient: key})
	case "openpgp", "":
		pub, err := os.Open(a.config.PublicKeyringPath)
		if err != nil {
			return nil, fmt.Errorf("opening public keyring: %w", err)
		}
		defer pub.Close()

		if !needPrivate {
			return cryptox.NewOpenPGP(pub, nil, nil)
		}

		priv, err := os.Open(a.config.PrivateKeyringPath)
		if err != nil {
			return nil, fmt.Errorf("opening private keyring: %w", err)
		}
		defer priv.Close()

		passphrase, err := a.getPassphrase()
		if err != nil {
			return nil, err
		}
		defer shared.WipeByteArray(passphrase)
		return cryptox.NewOpenPGP(pub, priv, passphrase)
	default:
		return nil, fmt.Errorf("unknown cipher suite %q", a.config.CipherSuite)
	}
}

// getPassphrase reads the keyring passphrase from the terminal without echo.
// The returned byte slice should be wiped by the caller when no longer needed.
func (a *App) getPassphrase() ([]byte, error) {
	if _, err := fmt.Fprint(a.out, "Enter keyring passphrase: "); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(a.out)
	if err != nil {
		return nil, err
	}
	return pw, nil
}
