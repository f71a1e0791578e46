package smtp

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ExpiryWarning is how close to expiry a certificate starts being reported
const ExpiryWarning = 14 * 24 * time.Hour

// CertificateStore serves the STARTTLS certificate from a PEM pair on disk.
// Reload swaps in a renewed pair without restarting the listener.
type CertificateStore struct {
	certFile string
	keyFile  string
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	cert     *tls.Certificate
	notAfter time.Time
	modTime  time.Time
}

// NewCertificateStore loads the pair at certFile and keyFile
func NewCertificateStore(certFile, keyFile string, logger *slog.Logger) (*CertificateStore, error) {
	if certFile == "" || keyFile == "" {
		return nil, fmt.Errorf("certificate and key files are both required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &CertificateStore{certFile: certFile, keyFile: keyFile, logger: logger, now: time.Now}
	if _, err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload reads the pair again when either file changed since the last load.
// It reports whether a new certificate is now served; on error the previous
// one stays in place.
func (s *CertificateStore) Reload() (bool, error) {
	modTime, err := latestModTime(s.certFile, s.keyFile)
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	unchanged := s.cert != nil && modTime.Equal(s.modTime)
	s.mu.RUnlock()
	if unchanged {
		return false, nil
	}

	cert, err := tls.LoadX509KeyPair(s.certFile, s.keyFile)
	if err != nil {
		return false, fmt.Errorf("load certificate %s: %w", s.certFile, err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return false, fmt.Errorf("parse certificate %s: %w", s.certFile, err)
	}
	cert.Leaf = leaf

	s.mu.Lock()
	s.cert = &cert
	s.notAfter = leaf.NotAfter
	s.modTime = modTime
	s.mu.Unlock()

	s.logger.Info("SMTP certificate loaded",
		slog.String("subject", leaf.Subject.CommonName),
		slog.Time("not_after", leaf.NotAfter))
	return true, nil
}

func latestModTime(paths ...string) (time.Time, error) {
	var latest time.Time
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("stat %s: %w", p, err)
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest, nil
}

// GetCertificate implements tls.Config.GetCertificate
func (s *CertificateStore) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cert == nil {
		return nil, fmt.Errorf("no certificate loaded")
	}
	return s.cert, nil
}

// NotAfter returns the expiry of the served certificate
func (s *CertificateStore) NotAfter() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notAfter
}

// ExpiresWithin reports whether the served certificate expires within d
func (s *CertificateStore) ExpiresWithin(d time.Duration) bool {
	return s.NotAfter().Before(s.now().Add(d))
}

// TLSConfig returns a server config that always serves the current certificate
func (s *CertificateStore) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: s.GetCertificate,
	}
}

// Schedule registers a periodic reload on c
func (s *CertificateStore) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Reload(); err != nil {
			s.logger.Error("SMTP certificate reload failed", slog.Any("error", err))
		}
		if s.ExpiresWithin(ExpiryWarning) {
			s.logger.Warn("SMTP certificate expires soon", slog.Time("not_after", s.NotAfter()))
		}
	})
}
