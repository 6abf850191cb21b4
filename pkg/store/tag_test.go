package store

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

func TestTagUnsigned(t *testing.T) {
	s := newTestRepo(t)

	if err := s.Transaction("seed", func(s *Store) error {
		s.Set("a.yml", 1)
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	id, err := s.Tag("v1", "first release", nil)
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}

	tag, err := s.db.GetTag(id)
	if err != nil {
		t.Fatalf("GetTag: %v", err)
	}
	if tag.Object != s.Head() || tag.Name != "v1" || tag.Signature != "" {
		t.Errorf("tag = %+v, want Object=%s Name=v1 Signature=\"\"", tag, s.Head())
	}

	refData, err := os.ReadFile(filepath.Join(s.gitDir, "refs", "tags", "v1"))
	if err != nil {
		t.Fatalf("read refs/tags/v1: %v", err)
	}
	if strings.TrimSpace(string(refData)) != string(id) {
		t.Errorf("refs/tags/v1 = %q, want %q", refData, id)
	}
}

func TestTagSignedVerifiesAgainstPublicKey(t *testing.T) {
	s := newTestRepo(t)

	if err := s.Transaction("seed", func(s *Store) error {
		s.Set("a.yml", 1)
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("NewSignerFromKey: %v", err)
	}

	var signedPayload []byte
	var producedSig *ssh.Signature
	tagSigner := TagSigner(func(payload []byte) (string, error) {
		signedPayload = payload
		sig, err := signer.Sign(rand.Reader, payload)
		if err != nil {
			return "", err
		}
		producedSig = sig
		return "sshsig-v1:" + sig.Format, nil
	})

	id, err := s.Tag("v1", "first release", tagSigner)
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}

	tag, err := s.db.GetTag(id)
	if err != nil {
		t.Fatalf("GetTag: %v", err)
	}
	if !strings.HasPrefix(tag.Signature, "sshsig-v1:") {
		t.Errorf("tag.Signature = %q, want sshsig-v1: prefix", tag.Signature)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("NewPublicKey: %v", err)
	}
	if producedSig == nil {
		t.Fatalf("signer was not invoked by Tag")
	}
	if err := sshPub.Verify(signedPayload, producedSig); err != nil {
		t.Errorf("signature does not verify: %v", err)
	}
}

func TestTagRequiresExistingHead(t *testing.T) {
	s := newTestRepo(t)

	if _, err := s.Tag("v1", "too early", nil); err == nil {
		t.Fatal("Tag on empty repository should fail")
	}
}
