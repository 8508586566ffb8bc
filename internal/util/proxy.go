// Package util holds HTTP plumbing shared by the model providers and the web evidence fetcher.
package util

import (
	"net/http"
	"net/url"
	"strings"
)

// NewProxyFunc builds an http.Transport proxy function.
// Explicit proxies take precedence; hosts listed in noProxy (comma separated,
// leading dot for suffixes) bypass them. With no explicit proxy the
// HTTP_PROXY/HTTPS_PROXY/NO_PROXY environment applies.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	bypass := splitNoProxy(noProxy)

	return func(req *http.Request) (*url.URL, error) {
		if bypassed(req.URL.Hostname(), bypass) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// NewHTTPClient returns a client with the given proxy settings and no overall timeout;
// callers bound requests with contexts.
func NewHTTPClient(httpProxy, httpsProxy, noProxy string) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: NewProxyFunc(httpProxy, httpsProxy, noProxy),
		},
	}
}

func splitNoProxy(noProxy string) []string {
	var out []string
	for _, h := range strings.Split(noProxy, ",") {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			out = append(out, h)
		}
	}
	return out
}

func bypassed(host string, bypass []string) bool {
	host = strings.ToLower(host)
	for _, b := range bypass {
		switch {
		case b == "*":
			return true
		case strings.HasPrefix(b, "."):
			if strings.HasSuffix(host, b) || host == b[1:] {
				return true
			}
		case host == b:
			return true
		}
	}
	return false
}
