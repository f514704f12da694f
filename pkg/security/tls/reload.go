package tls

import (
	"context"
	"crypto/tls"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/veil/pkg/watch"
)

// Reloader holds the serving certificate and swaps it when the certificate
// file changes. Deploy tools should write the key before the certificate.
type Reloader struct {
	certFile string
	keyFile  string

	mu   sync.RWMutex
	cert *tls.Certificate
}

// NewReloader loads the initial pair. An invalid or expired pair is an error.
func NewReloader(certFile, keyFile string) (*Reloader, error) {
	r := &Reloader{certFile: certFile, keyFile: keyFile}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	r.logCertificateInfo()
	return r, nil
}

// Reload reads the pair from disk. On failure the current certificate
// stays in service.
func (r *Reloader) Reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return err
	}
	if err := ValidateCertificate(&cert, time.Now()); err != nil {
		return err
	}

	r.mu.Lock()
	r.cert = &cert
	r.mu.Unlock()
	return nil
}

// GetCertificate satisfies tls.Config.GetCertificate.
func (r *Reloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

// Check reports an error once the serving certificate has expired. It is
// registered as a readiness check.
func (r *Reloader) Check(context.Context) error {
	cert, _ := r.GetCertificate(nil)
	return ValidateCertificate(cert, time.Now())
}

// Watch reloads the pair whenever the certificate file changes, until ctx
// is cancelled.
func (r *Reloader) Watch(ctx context.Context) error {
	fw, err := watch.New(r.certFile, 0, slog.Default().With("component", "tls"))
	if err != nil {
		return err
	}
	defer fw.Stop()

	return fw.Watch(ctx, func() error {
		if err := r.Reload(); err != nil {
			return err
		}
		r.logCertificateInfo()
		return nil
	})
}

func (r *Reloader) logCertificateInfo() {
	cert, _ := r.GetCertificate(nil)
	leaf, err := leafOf(cert)
	if err != nil {
		return
	}

	remaining := time.Until(leaf.NotAfter)
	attrs := []any{
		"subject", leaf.Subject.CommonName,
		"expires_at", leaf.NotAfter.Format(time.RFC3339),
		"expires_in_days", int(remaining.Hours() / 24),
	}
	if remaining < ExpiryWarning {
		slog.Warn("certificate expiring soon", attrs...)
		return
	}
	slog.Info("certificate loaded", append(attrs, "issuer", leaf.Issuer.CommonName)...)
}
