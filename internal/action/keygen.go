package action

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os/user"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/conn-castle/devsetup/internal/messages"
)

// KeyPair holds an SSH key pair in on-disk formats.
type KeyPair struct {
	// PrivateKey is the OpenSSH PEM private key.
	PrivateKey []byte
	// PublicKey is the authorized_keys line.
	PublicKey []byte
}

// GenerateEd25519 creates a new ed25519 key pair tagged with comment.
func GenerateEd25519(comment string) (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, comment)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("create ssh public key: %w", err)
	}
	return &KeyPair{
		PrivateKey: pem.EncodeToMemory(block),
		PublicKey:  authorizedKey(sshPub, comment),
	}, nil
}

// PublicKeyFromPrivate derives the authorized_keys line of an unencrypted
// OpenSSH private key.
func PublicKeyFromPrivate(privateKey []byte, comment string) ([]byte, error) {
	signer, err := ssh.ParsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	return authorizedKey(signer.PublicKey(), comment), nil
}

func authorizedKey(pub ssh.PublicKey, comment string) []byte {
	line := strings.TrimSuffix(string(ssh.MarshalAuthorizedKey(pub)), "\n")
	if comment != "" {
		line += " " + comment
	}
	return []byte(line + "\n")
}

// KeyGeneration creates an SSH key pair for a user unless the private key
// exists. A missing public half is rebuilt from the existing private key.
type KeyGeneration struct {
	User string
	// Path of the private key; the public key is Path + ".pub".
	Path    string
	Comment string
}

func (a KeyGeneration) Kind() Kind { return KindKeyGeneration }

func (a KeyGeneration) Describe() string { return "generate ssh key " + a.Path }

func (a KeyGeneration) Run(_ context.Context, env Env) error {
	path, owner, err := resolvePath(env, a.Path, a.User)
	if err != nil {
		return err
	}
	found, err := exists(env, path)
	if err != nil {
		return err
	}
	if found {
		return a.ensurePublic(env, path, owner)
	}
	if env.Config.DryRun() {
		wouldDo(env, "generate an ed25519 key pair at %s", path)
		return nil
	}
	pair, err := GenerateEd25519(a.comment(env))
	if err != nil {
		return err
	}
	if err := ensureDir(env, filepath.Dir(path), 0o700, owner); err != nil {
		return err
	}
	if err := writeOwned(env, path, pair.PrivateKey, 0o600, owner); err != nil {
		return err
	}
	if err := writeOwned(env, path+".pub", pair.PublicKey, 0o644, owner); err != nil {
		return err
	}
	env.Log.Infof(messages.ActionKeyGeneratedFmt, path+".pub")
	return nil
}

func (a KeyGeneration) ensurePublic(env Env, path string, owner *user.User) error {
	pubPath := path + ".pub"
	found, err := exists(env, pubPath)
	if err != nil {
		return err
	}
	if found {
		satisfied(env, a.Describe())
		return nil
	}
	if env.Config.DryRun() {
		wouldDo(env, "rebuild %s from %s", pubPath, path)
		return nil
	}
	private, err := env.System.ReadFile(path)
	if err != nil {
		return fmt.Errorf(messages.ActionParsePrivateKeyFmt, path, err)
	}
	public, err := PublicKeyFromPrivate(private, a.comment(env))
	if err != nil {
		return fmt.Errorf(messages.ActionParsePrivateKeyFmt, path, err)
	}
	if err := writeOwned(env, pubPath, public, 0o644, owner); err != nil {
		return err
	}
	env.Log.Infof(messages.ActionPublicKeyRebuiltFmt, pubPath)
	return nil
}

func (a KeyGeneration) comment(env Env) string {
	if a.Comment != "" {
		return a.Comment
	}
	host, err := env.System.Hostname()
	if err != nil || host == "" {
		return a.User
	}
	return a.User + "@" + host
}
