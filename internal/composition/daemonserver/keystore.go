package daemonserver

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/web3devz/Blockjack-Game/internal/signer"
)

const mnemonicEnv = "BLACKJACK_MNEMONIC"

// ResolveSigner loads the signing key. BLACKJACK_MNEMONIC wins; otherwise the
// keystore file is read, and if neither exists a fresh mnemonic is generated
// and persisted so the account survives restarts.
func ResolveSigner(keystorePath string) (*signer.Signer, error) {
	if mnemonic := strings.TrimSpace(os.Getenv(mnemonicEnv)); mnemonic != "" {
		return signer.FromMnemonic(mnemonic)
	}

	keystorePath = strings.TrimSpace(keystorePath)
	if keystorePath == "" {
		keystorePath = filepath.Join("data", "blackjack.key")
	}

	existing, err := os.ReadFile(keystorePath)
	if err == nil {
		if mnemonic := strings.TrimSpace(string(existing)); mnemonic != "" {
			return signer.FromMnemonic(mnemonic)
		}
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	s, mnemonic, err := signer.Generate()
	if err != nil {
		return nil, err
	}
	if err := writeKeystore(keystorePath, mnemonic); err != nil {
		return nil, err
	}
	return s, nil
}

func writeKeystore(path, mnemonic string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(mnemonic+"\n"), 0o600)
}
