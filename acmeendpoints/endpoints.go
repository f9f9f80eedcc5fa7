package acmeendpoints

var (
	// Let's Encrypt (Live v2)
	LetsEncryptLiveV2 = Endpoint{
		Code:                         "LetsEncryptLiveV2",
		Title:                        "Let's Encrypt (Live v2)",
		DirectoryURL:                 "https://acme-v02.api.letsencrypt.org/directory",
		OCSPURLRegexp:                `^http://ocsp\.int-[^.]+\.letsencrypt\.org\.?/.*$`,
		DeprecatedDirectoryURLRegexp: `^https://acme-v01\.api\.letsencrypt\.org/directory$`,
		Live:                         true,
	}

	// Let's Encrypt (Staging v2)
	LetsEncryptStagingV2 = Endpoint{
		Code:          "LetsEncryptStagingV2",
		Title:         "Let's Encrypt (Staging v2)",
		DirectoryURL:  "https://acme-staging-v02.api.letsencrypt.org/directory",
		OCSPURLRegexp: `^http://ocsp\.(staging|stg-int)-[^.]+\.letsencrypt\.org\.?/.*$`,
		Live:          false,
	}

	// Buypass Go SSL (Live)
	BuypassLiveV2 = Endpoint{
		Code:         "BuypassLiveV2",
		Title:        "Buypass Go SSL (Live)",
		DirectoryURL: "https://api.buypass.com/acme/directory",
		Live:         true,
	}

	// ZeroSSL (Live)
	ZeroSSLLiveV2 = Endpoint{
		Code:         "ZeroSSLLiveV2",
		Title:        "ZeroSSL (Live)",
		DirectoryURL: "https://acme.zerossl.com/v2/DV90",
		Live:         true,
	}
)

// DefaultEndpoint is the suggested default realm to use absent an explicit
// choice.
var DefaultEndpoint = &LetsEncryptLiveV2

var builtinEndpoints = []*Endpoint{
	&LetsEncryptLiveV2,
	&LetsEncryptStagingV2,
	&BuypassLiveV2,
	&ZeroSSLLiveV2,
}
