package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arnegrid/pathkv/pkg/store"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
)

const tagSignaturePrefix = "sshsig-v1"

func newTagCmd() *cobra.Command {
	var branch string
	var message string
	var signKeyPath string
	var sign bool

	cmd := &cobra.Command{
		Use:   "tag <name>",
		Short: "Annotate the current head commit, optionally with an SSH signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			s, err := openStore(branch, false)
			if err != nil {
				return err
			}

			var signer store.TagSigner
			var keyUsed string
			if sign {
				signer, keyUsed, err = newSSHTagSigner(signKeyPath)
				if err != nil {
					return err
				}
			}

			id, err := s.Tag(name, message, signer)
			if err != nil {
				return err
			}

			short := string(id)
			if len(short) > 8 {
				short = short[:8]
			}
			if keyUsed != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "tagged %s (%s), signed with %s\n", name, short, keyUsed)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "tagged %s (%s)\n", name, short)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "main", "branch whose head to tag")
	cmd.Flags().StringVarP(&message, "message", "m", "", "tag annotation message")
	cmd.Flags().BoolVar(&sign, "sign", false, "sign the tag with an SSH private key")
	cmd.Flags().StringVar(&signKeyPath, "key", "", "SSH private key to sign with (default: ~/.ssh/id_ed25519, id_ecdsa, id_rsa)")
	return cmd
}

// newSSHTagSigner builds a store.TagSigner backed by an SSH private key,
// producing a "sshsig-v1:<format>:<pubkey-b64>:<sig-b64>" signature string
// over the tag's canonical signing payload.
func newSSHTagSigner(keyPath string) (store.TagSigner, string, error) {
	resolvedPath, err := resolveSigningKeyPath(keyPath)
	if err != nil {
		return nil, "", err
	}

	raw, err := os.ReadFile(resolvedPath)
	if err != nil {
		return nil, "", fmt.Errorf("read signing key %q: %w", resolvedPath, err)
	}
	signer, err := ssh.ParsePrivateKey(raw)
	if err != nil {
		return nil, "", fmt.Errorf("parse signing key %q: %w", resolvedPath, err)
	}

	pub := signer.PublicKey()
	pubB64 := base64.StdEncoding.EncodeToString(pub.Marshal())

	tagSigner := func(payload []byte) (string, error) {
		sig, err := signer.Sign(rand.Reader, payload)
		if err != nil {
			return "", err
		}
		sigB64 := base64.StdEncoding.EncodeToString(sig.Blob)
		return fmt.Sprintf("%s:%s:%s:%s", tagSignaturePrefix, sig.Format, pubB64, sigB64), nil
	}
	return tagSigner, resolvedPath, nil
}

func resolveSigningKeyPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path != "" {
		return expandUserPath(path)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	candidates := []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_ecdsa"),
		filepath.Join(home, ".ssh", "id_rsa"),
	}
	for _, candidate := range candidates {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no default SSH private key found in ~/.ssh (id_ed25519, id_ecdsa, id_rsa)")
}

func expandUserPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(path)
}
