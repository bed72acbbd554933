package fingerprint

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile represents a recognized TLS fingerprint profile.
type Profile string

const (
	ProfileEdge    Profile = "edge"
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard go TLS
	ProfileRandom  Profile = "random" // randomized uTLS profile
)

// Profiles lists every accepted profile name.
var Profiles = []Profile{ProfileEdge, ProfileChrome, ProfileFirefox, ProfileSafari, ProfileGo, ProfileRandom}

// ParseProfile maps a config string onto a Profile. Empty means ProfileEdge.
func ParseProfile(s string) (Profile, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ProfileEdge, nil
	}
	for _, p := range Profiles {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("fingerprint: unknown profile %q", s)
}

// Options tunes the transport beyond the profile.
type Options struct {
	// Proxy configures the underlying transport's Proxy when set.
	Proxy func(*http.Request) (*url.URL, error)
	// InsecureSkipVerify disables certificate checks. Tests only.
	InsecureSkipVerify bool
}

func helloID(p Profile) (utls.ClientHelloID, error) {
	switch p {
	case ProfileEdge:
		return utls.HelloEdge_Auto, nil
	case ProfileChrome:
		return utls.HelloChrome_Auto, nil
	case ProfileFirefox:
		return utls.HelloFirefox_Auto, nil
	case ProfileSafari:
		return utls.HelloIOS_Auto, nil
	case ProfileRandom:
		return utls.HelloRandomizedALPN, nil
	default:
		return utls.ClientHelloID{}, fmt.Errorf("fingerprint: unknown profile %q", p)
	}
}

// http1Spec returns the preset for id with ALPN pinned to http/1.1, since
// net/http cannot speak h2 over a connection it did not negotiate itself.
// ok is false when utls has no spec for id.
func http1Spec(id utls.ClientHelloID) (spec utls.ClientHelloSpec, ok bool) {
	spec, err := utls.UTLSIdToSpec(id)
	if err != nil {
		return spec, false
	}
	for _, ext := range spec.Extensions {
		if alpn, isALPN := ext.(*utls.ALPNExtension); isALPN {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
	return spec, true
}

// Transport returns an http.RoundTripper configured with the specified
// TLS fingerprint profile. ProfileGo yields a plain cloned http.Transport;
// every other profile performs the handshake through utls.UClient.
func Transport(p Profile, opts Options) (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != nil {
		transport.Proxy = opts.Proxy
	}

	if p == ProfileGo {
		if opts.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		return transport, nil
	}

	id, err := helloID(p)
	if err != nil {
		return nil, err
	}

	transport.ForceAttemptHTTP2 = false
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := transport.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		cfg := &utls.Config{ServerName: host, InsecureSkipVerify: opts.InsecureSkipVerify}
		var uConn *utls.UConn
		// Specs carry per-connection state, so each dial builds its own.
		if spec, pinned := http1Spec(id); pinned {
			uConn = utls.UClient(tcpConn, cfg, utls.HelloCustom)
			if err := uConn.ApplyPreset(&spec); err != nil {
				_ = tcpConn.Close()
				return nil, fmt.Errorf("fingerprint: apply preset: %w", err)
			}
		} else {
			uConn = utls.UClient(tcpConn, cfg, id)
		}

		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("fingerprint: utls handshake failed: %w", err)
		}
		return uConn, nil
	}

	return transport, nil
}
