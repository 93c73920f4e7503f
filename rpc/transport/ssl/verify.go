package ssl

import (
	"crypto/x509"
	"errors"
	"fmt"
	"strings"

	"github.com/scalaris-team/scalaris-go/rpc/common"
)

var errNoCertificate = errors.New("peer presented no certificate")

// rejectedError is returned to the handshake if the verify callback rejects a certificate
type rejectedError struct {
	depth   int
	subject string
	cause   error
}

func (e *rejectedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("certificate %q at depth %d rejected: %v", e.subject, e.depth, e.cause)
	}
	return fmt.Sprintf("certificate %q at depth %d rejected", e.subject, e.depth)
}

func (e *rejectedError) Unwrap() error { return e.cause }

// verifyPeer verifies the presented chain against roots (nil means the
// system roots) and serverName, then asks the callback for every
// certificate, from the top of the chain down to the peer certificate.
// Any rejection aborts the handshake.
func verifyPeer(chain []*x509.Certificate, roots *x509.CertPool, serverName string, callback common.VerifyCallback) error {
	if len(chain) == 0 {
		return &rejectedError{cause: errNoCertificate}
	}

	opts := x509.VerifyOptions{
		Roots:         roots,
		DNSName:       serverName,
		Intermediates: x509.NewCertPool(),
	}
	for _, cert := range chain[1:] {
		opts.Intermediates.AddCert(cert)
	}
	_, chainErr := chain[0].Verify(opts)
	preverified := chainErr == nil

	for depth := len(chain) - 1; depth >= 0; depth-- {
		ctx := &common.CertificateContext{
			Depth:       depth,
			Certificate: chain[depth],
			Chain:       chain,
			Err:         chainErr,
		}
		if !callback(preverified, ctx) {
			return &rejectedError{depth: depth, subject: chain[depth].Subject.String(), cause: chainErr}
		}
	}
	return nil
}

// DefaultVerifyCallback accepts exactly what the chain verification accepted
func DefaultVerifyCallback(preverified bool, ctx *common.CertificateContext) bool {
	Logger.Debugf("Verifying certificate at depth %d: subject=%q issuer=%q preverified=%t",
		ctx.Depth, ctx.Certificate.Subject.String(), ctx.Certificate.Issuer.String(), preverified)
	return preverified
}

// PinnedVerifyCallback accepts a chain that failed verification if it contains
// a certificate with one of the given SHA-256 fingerprints (hex, colons allowed)
func PinnedVerifyCallback(pins ...string) common.VerifyCallback {
	pinned := make(map[string]struct{}, len(pins))
	for _, pin := range pins {
		pinned[normalizeFingerprint(pin)] = struct{}{}
	}

	return func(preverified bool, ctx *common.CertificateContext) bool {
		if preverified {
			return true
		}
		for _, cert := range ctx.Chain {
			if _, ok := pinned[common.Fingerprint(cert)]; ok {
				Logger.Debugf("Accepting certificate at depth %d: chain contains pinned certificate %q",
					ctx.Depth, cert.Subject.String())
				return true
			}
		}
		Logger.Warningf("Rejecting certificate at depth %d (%q): %v", ctx.Depth, ctx.Certificate.Subject.String(), ctx.Err)
		return false
	}
}

func normalizeFingerprint(pin string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(pin), ":", ""))
}
