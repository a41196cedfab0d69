package gateway

import (
	"crypto/subtle"
	"fmt"
	"net/netip"

	apperrors "waveshop/internal/shared/errors"
)

// IPAllowlistAuthenticator trusts requests by network origin: the source
// address must fall inside one of the provider's published ranges.
type IPAllowlistAuthenticator struct {
	networks []netip.Prefix
}

func NewIPAllowlistAuthenticator(cidrs []string) (*IPAllowlistAuthenticator, error) {
	networks := make([]netip.Prefix, 0, len(cidrs))
	for _, cidr := range cidrs {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted network %q: %w", cidr, err)
		}
		networks = append(networks, prefix)
	}
	return &IPAllowlistAuthenticator{networks: networks}, nil
}

func (a *IPAllowlistAuthenticator) Authenticate(sourceIP netip.Addr) error {
	if !sourceIP.IsValid() {
		return fmt.Errorf("%w: invalid source address", apperrors.ErrAuthenticationFailed)
	}
	for _, network := range a.networks {
		if network.Contains(sourceIP.Unmap()) {
			return nil
		}
	}
	return fmt.Errorf("%w: source %s not in trusted networks", apperrors.ErrAuthenticationFailed, sourceIP)
}

// SecretTokenAuthenticator compares a caller-supplied token against the
// configured secret in constant time. With no secret configured it fails
// closed unless the gateway config explicitly allows unsigned webhooks.
type SecretTokenAuthenticator struct {
	secret        string
	allowUnsigned bool
}

func NewSecretTokenAuthenticator(secret string, allowUnsigned bool) *SecretTokenAuthenticator {
	return &SecretTokenAuthenticator{secret: secret, allowUnsigned: allowUnsigned}
}

func (a *SecretTokenAuthenticator) Authenticate(presented string) error {
	if a.secret == "" {
		if a.allowUnsigned {
			return nil
		}
		return fmt.Errorf("%w: no webhook secret configured", apperrors.ErrAuthenticationFailed)
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(a.secret)) != 1 {
		return fmt.Errorf("%w: secret token mismatch", apperrors.ErrAuthenticationFailed)
	}
	return nil
}
