package middleware

import (
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
)

// verifiedTLSState builds the TLS connection state of a request whose client
// certificate chain was verified, with the given CN on the leaf.
func verifiedTLSState(cn string) *tls.ConnectionState {
	leaf := &x509.Certificate{Subject: pkix.Name{CommonName: cn}}
	return &tls.ConnectionState{
		PeerCertificates: []*x509.Certificate{leaf},
		VerifiedChains:   [][]*x509.Certificate{{leaf}},
	}
}
