package daemonserver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/web3devz/Blockjack-Game/internal/testutil/fsperm"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestResolveSignerEnvWins(t *testing.T) {
	t.Setenv(mnemonicEnv, testMnemonic)
	path := filepath.Join(t.TempDir(), "blackjack.key")

	s, err := ResolveSigner(path)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.Address() == "" {
		t.Fatal("expected derived address")
	}
	if _, err := os.Stat(path); err == nil {
		t.Fatal("env mnemonic should not touch the keystore file")
	}
}

func TestResolveSignerGeneratesAndPersists(t *testing.T) {
	t.Setenv(mnemonicEnv, "")
	path := filepath.Join(t.TempDir(), "blackjack.key")

	first, err := ResolveSigner(path)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("keystore should have been written: %v", err)
	}
	fsperm.AssertPrivateFilePerm(t, path)
	if len(strings.Fields(strings.TrimSpace(string(raw)))) < 12 {
		t.Fatalf("keystore does not look like a mnemonic: %q", raw)
	}

	second, err := ResolveSigner(path)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if first.Address() != second.Address() {
		t.Fatalf("address must survive restart: %s != %s", first.Address(), second.Address())
	}
}

func TestResolveSignerReadsExistingFile(t *testing.T) {
	t.Setenv(mnemonicEnv, "")
	path := filepath.Join(t.TempDir(), "blackjack.key")
	if err := os.WriteFile(path, []byte(testMnemonic+"\n"), 0o600); err != nil {
		t.Fatalf("seed keystore: %v", err)
	}

	s, err := ResolveSigner(path)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	fromEnv, err := func() (addr string, err error) {
		t.Setenv(mnemonicEnv, testMnemonic)
		resolved, err := ResolveSigner(filepath.Join(t.TempDir(), "other.key"))
		if err != nil {
			return "", err
		}
		return resolved.Address(), nil
	}()
	if err != nil {
		t.Fatalf("resolve via env: %v", err)
	}
	if s.Address() != fromEnv {
		t.Fatalf("file and env mnemonics must derive the same address")
	}
}
