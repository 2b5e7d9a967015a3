package vaultctl

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/louisbranch/tokenvault/internal/services/vault/authz"
	"github.com/louisbranch/tokenvault/internal/services/vault/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// keyFile is the on-disk form of a principal key. The private key is the
// base64url ed25519 seed.
type keyFile struct {
	Identity   string `yaml:"identity"`
	PrivateKey string `yaml:"private_key"`
}

func writeKeyFile(path string, priv ed25519.PrivateKey, force bool) (domain.Identity, error) {
	identity := domain.IdentityFromPublicKey(priv.Public().(ed25519.PublicKey))
	data, err := yaml.Marshal(keyFile{
		Identity:   string(identity),
		PrivateKey: base64.RawURLEncoding.EncodeToString(priv.Seed()),
	})
	if err != nil {
		return "", fmt.Errorf("encode key file: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("key file %s already exists; pass --force to replace it", path)
		}
		return "", fmt.Errorf("create key file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write key file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close key file: %w", err)
	}
	return identity, nil
}

func readKeyFile(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	var kf keyFile
	if err := yaml.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("decode key file: %w", err)
	}
	seed, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(kf.PrivateKey))
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("key file %s does not hold an ed25519 seed", path)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	if kf.Identity != "" {
		derived := domain.IdentityFromPublicKey(priv.Public().(ed25519.PublicKey))
		if string(derived) != strings.TrimSpace(kf.Identity) {
			return nil, fmt.Errorf("key file %s identity does not match its private key", path)
		}
	}
	return priv, nil
}

func newKeygenCommand() *cobra.Command {
	var (
		out   string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 principal key file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, priv, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			identity, err := writeKeyFile(out, priv, force)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), identity)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "vault-key.yaml", "Path of the key file to write")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing key file")
	return cmd
}

func newIdentityCommand() *cobra.Command {
	var keyPath string
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Print the identity of a key file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			priv, err := readKeyFile(keyPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), domain.IdentityFromPublicKey(priv.Public().(ed25519.PublicKey)))
			return nil
		},
	}
	cmd.Flags().StringVar(&keyPath, "key", "vault-key.yaml", "Path of the key file")
	return cmd
}

func newSignCommand() *cobra.Command {
	var (
		keyPath  string
		op       string
		amount   uint64
		asset    string
		audience string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Issue a signed request grant for one operation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			operation := domain.Operation(strings.TrimSpace(op))
			if !operation.Valid() {
				return fmt.Errorf("operation %q must be initialize, deposit, or withdraw", op)
			}
			priv, err := readKeyFile(keyPath)
			if err != nil {
				return err
			}
			grant, err := authz.Sign(priv, authz.GrantRequest{
				Operation: operation,
				Amount:    amount,
				Asset:     domain.Asset(strings.TrimSpace(asset)),
				Audience:  audience,
				TTL:       ttl,
			})
			if err != nil {
				return fmt.Errorf("sign grant: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), grant)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyPath, "key", "vault-key.yaml", "Path of the signer key file")
	cmd.Flags().StringVar(&op, "op", "", "Operation the grant authorizes")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "Amount in base units (0 for initialize)")
	cmd.Flags().StringVar(&asset, "asset", "", "Asset the request names, if any")
	cmd.Flags().StringVar(&audience, "audience", authz.DefaultAudience, "Grant audience")
	cmd.Flags().DurationVar(&ttl, "ttl", 5*time.Minute, "Grant lifetime")
	_ = cmd.MarkFlagRequired("op")
	return cmd
}
