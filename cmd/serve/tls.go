package serve

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/gigurra/jukebox/cmd/common"
)

const certValidity = 365 * 24 * time.Hour

func certPaths() (certPath, keyPath string, err error) {
	dir := common.DataDir()
	if dir == "" {
		return "", "", fmt.Errorf("could not determine data directory, set JUKEBOX_HOME")
	}
	dir = filepath.Join(dir, "tls")
	return filepath.Join(dir, "cert.pem"), filepath.Join(dir, "key.pem"), nil
}

func deleteCerts() error {
	certPath, keyPath, err := certPaths()
	if err != nil {
		return err
	}
	for _, p := range []string{certPath, keyPath} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// loadOrGenerateCert returns the saved self-signed certificate, creating it
// on first use or after it expired, with its SHA-256 fingerprint.
func loadOrGenerateCert(stdout io.Writer) (*tls.Config, string, error) {
	certPath, keyPath, err := certPaths()
	if err != nil {
		return nil, "", err
	}
	if cfg, fp, err := loadCert(certPath, keyPath, time.Now()); err == nil {
		return cfg, fp, nil
	}
	fmt.Fprintln(stdout, "  generating new TLS certificate...")

	certPEM, keyPEM, err := generateCert(time.Now(), localIPs())
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(filepath.Dir(certPath), 0700); err != nil {
		return nil, "", fmt.Errorf("create cert dir: %w", err)
	}
	if err := os.WriteFile(certPath, certPEM, 0644); err != nil {
		return nil, "", fmt.Errorf("save cert: %w", err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		return nil, "", fmt.Errorf("save key: %w", err)
	}
	fmt.Fprintf(stdout, "  cert saved to: %s\n", certPath)
	return loadCert(certPath, keyPath, time.Now())
}

func loadCert(certPath, keyPath string, now time.Time) (*tls.Config, string, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, "", err
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, "", err
	}
	return parseCert(certPEM, keyPEM, now)
}

func parseCert(certPEM, keyPEM []byte, now time.Time) (*tls.Config, string, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, "", fmt.Errorf("invalid cert PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, "", err
	}
	if now.After(cert.NotAfter) {
		return nil, "", fmt.Errorf("certificate expired")
	}
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, "", err
	}
	fingerprint := sha256.Sum256(cert.Raw)
	return &tls.Config{Certificates: []tls.Certificate{pair}}, fmt.Sprintf("%X", fingerprint), nil
}

// generateCert creates a self-signed certificate valid for localhost and ips.
func generateCert(now time.Time, ips []net.IP) (certPEM, keyPEM []byte, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, fmt.Errorf("generate serial: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "jukebox remote"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(certValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           ips,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), nil
}
