package security

import "net/http"

// ClientCertCN returns the common name of the leaf certificate in the first
// verified client chain, or "" when the request carried no verified client
// certificate. Unverified peer certificates are never consulted.
func ClientCertCN(r *http.Request) string {
	if r.TLS == nil || len(r.TLS.VerifiedChains) == 0 {
		return ""
	}
	chain := r.TLS.VerifiedChains[0]
	if len(chain) == 0 {
		return ""
	}
	return chain[0].Subject.CommonName
}
