package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"filippo.io/age"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sekia-ai/nativebridge/internal/secrets"
)

func newSecretsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Seal config values such as iap.public_key and security.command_secret",
	}

	cmd.AddCommand(newSecretsKeygenCmd())
	cmd.AddCommand(newSecretsEncryptCmd())
	cmd.AddCommand(newSecretsDecryptCmd())
	cmd.AddCommand(newSecretsCheckCmd())

	return cmd
}

func resolveIdentities() ([]age.Identity, error) {
	ids, err := secrets.ResolveIdentity(viper.New())
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	if ids == nil {
		return nil, fmt.Errorf("no age identity found; set %s, %s, or create %s with 'bridgectl secrets keygen'",
			secrets.EnvAgeKey, secrets.EnvAgeKeyFile, secrets.DefaultKeyPath())
	}
	return ids, nil
}

func newSecretsKeygenCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the age identity bridged and bridge-nativesim unseal with",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = secrets.DefaultKeyPath()
			}
			if _, err := os.Stat(output); err == nil {
				return fmt.Errorf("key file already exists: %s (remove it first to regenerate)", output)
			}

			identity, err := secrets.NewIdentity()
			if err != nil {
				return fmt.Errorf("generate keypair: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(output), 0700); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}

			content := fmt.Sprintf("# created: %s\n# public key: %s\n%s\n",
				time.Now().Format(time.RFC3339),
				identity.Recipient().String(),
				identity.String(),
			)
			if err := os.WriteFile(output, []byte(content), 0600); err != nil {
				return fmt.Errorf("write key file: %w", err)
			}

			fmt.Printf("Key file written to: %s\n", output)
			fmt.Printf("Public key: %s\n", identity.Recipient().String())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: ~/.config/nativebridge/age.key)")
	return cmd
}

func newSecretsEncryptCmd() *cobra.Command {
	var recipientKey, configKey string

	cmd := &cobra.Command{
		Use:   "encrypt <value>",
		Short: "Seal a value for a config file",
		Long: `Encrypts a value and prints the ENC[...] string. With --key the output is a
ready-to-paste TOML assignment, e.g.

  bridgectl secrets encrypt --key public_key MIIBIjANBgkq...

prints public_key = "ENC[...]" for the [iap] table.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipient, err := encryptRecipient(recipientKey)
			if err != nil {
				return err
			}

			sealed, err := secrets.Seal(args[0], recipient)
			if err != nil {
				return fmt.Errorf("encrypt: %w", err)
			}

			if configKey != "" {
				fmt.Printf("%s = %q\n", configKey, sealed)
				return nil
			}
			fmt.Println(sealed)
			return nil
		},
	}

	cmd.Flags().StringVar(&recipientKey, "recipient", "", "age public key (default: derived from the resolved identity)")
	cmd.Flags().StringVar(&configKey, "key", "", "print as a TOML assignment to this key")
	return cmd
}

func encryptRecipient(recipientKey string) (age.Recipient, error) {
	if recipientKey != "" {
		r, err := age.ParseX25519Recipient(recipientKey)
		if err != nil {
			return nil, fmt.Errorf("parse recipient: %w", err)
		}
		return r, nil
	}
	ids, err := resolveIdentities()
	if err != nil {
		return nil, err
	}
	x25519, ok := ids[0].(*age.X25519Identity)
	if !ok {
		return nil, errors.New("resolved identity is not X25519; use --recipient")
	}
	return x25519.Recipient(), nil
}

func newSecretsDecryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <encrypted-value>",
		Short: "Decrypt an ENC[...] value (for debugging)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := resolveIdentities()
			if err != nil {
				return err
			}
			plaintext, err := secrets.Open(args[0], ids...)
			if err != nil {
				return err
			}
			fmt.Println(plaintext)
			return nil
		},
	}
}

func newSecretsCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <config-file>",
		Short: "Verify every sealed value in a config file can be unsealed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			v.SetConfigFile(args[0])
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}

			sealed, err := secrets.Unseal(v)
			if err != nil {
				return err
			}
			if len(sealed) == 0 {
				fmt.Println("No sealed values.")
				return nil
			}
			for _, key := range sealed {
				fmt.Printf("ok  %s\n", key)
			}
			return nil
		},
	}
}
