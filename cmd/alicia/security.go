package main

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aliciabus/alicia/pkg/security"
	"github.com/spf13/cobra"
)

var securityCmd = &cobra.Command{
	Use:   "security",
	Short: "Run the security gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		broker, username, password, httpAddr, metricsAddr := persistentFlags(cmd)
		keyPath, _ := cmd.Flags().GetString("key-file")

		key, err := loadOrGenerateKey(keyPath)
		if err != nil {
			return fmt.Errorf("load signing key: %w", err)
		}
		gateway := security.NewGateway(key)

		client, err := connectBus(context.Background(), "security", broker, username, password)
		if err != nil {
			return err
		}
		if err := security.Wire(client, gateway); err != nil {
			return fmt.Errorf("wire security gateway: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		go gateway.SweepLoop(ctx, time.Minute)

		serveHTTP("security", httpAddr, withHealth(client, security.Handler(gateway)))
		serveMetrics("security", metricsAddr)
		fmt.Printf("security gateway online — broker %s, http %s\n", broker, httpAddr)

		return waitForShutdown(client, cancel)
	},
}

func init() {
	securityCmd.Flags().String("key-file", "./data/security/signing-key.pem", "PEM-encoded RSA private key (generated if absent)")
}

// loadOrGenerateKey reads an RSA private key from path, generating and
// persisting a fresh one if the file doesn't exist yet.
func loadOrGenerateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		block, _ := pem.Decode(data)
		if block == nil {
			return nil, fmt.Errorf("%s: not a PEM file", path)
		}
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	key, err := security.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		return nil, fmt.Errorf("persist generated key: %w", err)
	}
	return key, nil
}
