package domain

// Endpoint is a resolved engine connection target.
type Endpoint struct {
	Host       string `json:"host"`
	APIVersion string `json:"api_version,omitempty"`
	TLS        TLSConfig
}

// TLSConfig holds the client certificate settings for an endpoint.
type TLSConfig struct {
	// CertPath is a directory holding ca.pem, cert.pem and key.pem.
	CertPath string
	Verify   bool
}

// Enabled reports whether the endpoint is reached over TLS.
func (t TLSConfig) Enabled() bool {
	return t.CertPath != ""
}
