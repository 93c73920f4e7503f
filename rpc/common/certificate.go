package common

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
)

// CertificateContext describes the certificate currently inspected by a VerifyCallback
type CertificateContext struct {
	// Depth is the position in the presented chain, 0 is the peer (leaf) certificate
	Depth int
	// Certificate is the certificate at Depth
	Certificate *x509.Certificate
	// Chain is the full chain as presented by the peer, leaf first
	Chain []*x509.Certificate
	// Err is the reason the chain verification failed (nil if it succeeded)
	Err error
}

// Fingerprint returns the hex encoded SHA-256 fingerprint of the current certificate
func (c *CertificateContext) Fingerprint() string {
	return Fingerprint(c.Certificate)
}

// Fingerprint returns the hex encoded SHA-256 fingerprint of cert
func Fingerprint(cert *x509.Certificate) string {
	if cert == nil {
		return ""
	}
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:])
}

// VerifyCallback decides whether a certificate of the peer chain is accepted.
// preverified is the outcome of the standard chain of trust verification.
type VerifyCallback func(preverified bool, ctx *CertificateContext) bool
