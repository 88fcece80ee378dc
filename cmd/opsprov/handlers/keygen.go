package handlers

import (
	"fmt"
	"io"

	"github.com/imamik/opsprov/internal/util/keygen"
)

// Key types accepted by Keygen.
const (
	KeyTypeRSA     = "rsa"
	KeyTypeED25519 = "ed25519"
)

// Keygen writes a new SSH key pair to path and path+".pub".
func Keygen(w io.Writer, path, keyType string, bits int) error {
	var (
		pair *keygen.KeyPair
		err  error
	)
	switch keyType {
	case KeyTypeRSA:
		pair, err = keygen.GenerateRSAKeyPair(bits)
	case KeyTypeED25519:
		pair, err = keygen.GenerateED25519KeyPair("opsprov")
	default:
		return fmt.Errorf("unknown key type %q (want rsa or ed25519)", keyType)
	}
	if err != nil {
		return err
	}

	if err := pair.WriteFiles(path); err != nil {
		return err
	}

	fmt.Fprintf(w, "Private key: %s\n", path)
	fmt.Fprintf(w, "Public key:  %s.pub\n", path)
	fmt.Fprintf(w, "\n%s", pair.PublicKey)
	return nil
}
