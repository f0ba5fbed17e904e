/*
Copyright © 2025 Mulga Defense Corporation

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	_ "embed"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/mulgadc/mockcloud/mockcloud/iam"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/ini.v1"
)

//go:embed templates/mockcloud.toml
var mockcloudTomlTemplate string

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative commands for mockcloud management",
	Long:  `Administrative commands for initializing and managing a mockcloud deployment.`,
}

var adminInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize mockcloud configuration and credentials",
	Run:   runAdminInit,
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminInitCmd)

	adminInitCmd.Flags().Bool("force", false, "Overwrite existing configuration")
	adminInitCmd.Flags().String("config-dir", "", "Configuration directory (default ~/mockcloud/config)")
	adminInitCmd.Flags().String("region", "ap-southeast-2", "Default region")
}

type configTemplateData struct {
	Region    string
	DataDir   string
	ConfigDir string
	AccessKey string
	SecretKey string
	NATSToken string
}

func runAdminInit(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")
	configDir, _ := cmd.Flags().GetString("config-dir")
	region, _ := cmd.Flags().GetString("region")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
		os.Exit(1)
	}

	dataDir := filepath.Join(homeDir, "mockcloud")
	if configDir == "" {
		configDir = filepath.Join(dataDir, "config")
	}

	fmt.Println("Initializing mockcloud...")
	fmt.Printf("Configuration directory: %s\n\n", configDir)

	configPath := filepath.Join(configDir, "mockcloud.toml")
	if !force && fileExists(configPath) {
		fmt.Println("Mockcloud already initialized!")
		fmt.Printf("Config file exists: %s\n", configPath)
		fmt.Println("\nTo re-initialize, run with --force flag:")
		fmt.Println("  mockcloud admin init --force")
		os.Exit(0)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config directory: %v\n", err)
		os.Exit(1)
	}

	// Root credentials, picked up by the gateway on first boot.
	accessKey := iam.GenerateAccessKeyID()
	secretKey := iam.GenerateSecretAccessKey()

	fmt.Println("Generated root credentials:")
	fmt.Printf("   Access Key: %s\n", accessKey)
	fmt.Printf("   Secret Key: %s\n", secretKey)

	certPath := filepath.Join(configDir, "server.pem")
	keyPath := filepath.Join(configDir, "server.key")

	if force || !fileExists(certPath) || !fileExists(keyPath) {
		fmt.Println("\nGenerating TLS certificate...")
		if err := generateSelfSignedCert(certPath, keyPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating TLS certificate: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("   Certificate: %s\n", certPath)
		fmt.Printf("   Key: %s\n", keyPath)
	}

	natsToken := generateNATSToken()

	data := configTemplateData{
		Region:    region,
		DataDir:   dataDir,
		ConfigDir: configDir,
		AccessKey: accessKey,
		SecretKey: secretKey,
		NATSToken: natsToken,
	}

	if err := generateConfigFile(configPath, mockcloudTomlTemplate, data); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nCreated: %s\n", configPath)

	fmt.Println("\nConfiguring AWS credentials...")
	if err := setupAWSCredentials(accessKey, secretKey, region, certPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not update AWS credentials: %v\n", err)
	} else {
		fmt.Println("AWS credentials configured under the 'mockcloud' profile")
	}

	for _, dir := range []string{
		filepath.Join(dataDir, "nats"),
		filepath.Join(dataDir, "logs"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Could not create %s: %v\n", dir, err)
		}
	}

	fmt.Println("\nMockcloud initialization complete!")
	fmt.Println("\nNext steps:")
	fmt.Println("   1. Start services:")
	fmt.Printf("      mockcloud service nats start --config %s\n", configPath)
	fmt.Printf("      mockcloud service awsgw start --config %s\n", configPath)
	fmt.Println()
	fmt.Println("   2. Test with AWS CLI:")
	fmt.Println("      export AWS_PROFILE=mockcloud")
	fmt.Println("      aws --endpoint-url https://localhost:8443 --no-verify-ssl iam list-users")
	fmt.Println()
}

func generateNATSToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func generateSelfSignedCert(certPath, keyPath string) error {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return err
	}

	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"Mockcloud"},
			CommonName:   "localhost",
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(10, 0, 0),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return err
	}

	certOut, err := os.Create(certPath)
	if err != nil {
		return err
	}
	defer certOut.Close()
	if err := pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: derBytes}); err != nil {
		return err
	}

	keyBytes, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return err
	}

	keyOut, err := os.OpenFile(keyPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer keyOut.Close()
	return pem.Encode(keyOut, &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes})
}

func generateConfigFile(path, templateContent string, data configTemplateData) error {
	tmpl, err := template.New(filepath.Base(path)).Parse(templateContent)
	if err != nil {
		return err
	}

	var rendered bytes.Buffer
	if err := tmpl.Execute(&rendered, data); err != nil {
		return err
	}

	// A rendered config that does not parse as TOML is useless, catch it here.
	var parsed map[string]any
	if err := toml.Unmarshal(rendered.Bytes(), &parsed); err != nil {
		return fmt.Errorf("rendered config is not valid TOML: %w", err)
	}

	return os.WriteFile(path, rendered.Bytes(), 0600)
}

// setupAWSCredentials writes the mockcloud profile to ~/.aws/credentials
// and ~/.aws/config, preserving any other profiles.
func setupAWSCredentials(accessKey, secretKey, region, certPath string) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	awsDir := filepath.Join(homeDir, ".aws")
	if err := os.MkdirAll(awsDir, 0700); err != nil {
		return err
	}

	credPath := filepath.Join(awsDir, "credentials")
	if err := updateAWSINIFile(credPath, "mockcloud", map[string]string{
		"aws_access_key_id":     accessKey,
		"aws_secret_access_key": secretKey,
	}); err != nil {
		return err
	}

	configPath := filepath.Join(awsDir, "config")
	return updateAWSINIFile(configPath, "profile mockcloud", map[string]string{
		"region":    region,
		"ca_bundle": certPath,
	})
}

func updateAWSINIFile(path, section string, values map[string]string) error {
	var cfg *ini.File
	var err error

	if fileExists(path) {
		cfg, err = ini.Load(path)
		if err != nil {
			return err
		}
	} else {
		cfg = ini.Empty()
	}

	sec, err := cfg.NewSection(section)
	if err != nil {
		return err
	}
	for key, value := range values {
		sec.Key(key).SetValue(value)
	}

	return cfg.SaveTo(path)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
