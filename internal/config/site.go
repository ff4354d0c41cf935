package config

// SiteConfig holds per-hostname settings. Sites behind a login can be
// crawled by giving the fetcher the session cookie or headers they
// expect.
type SiteConfig struct {
	// Cookie is an HTTP cookie header value for this site.
	// Format: "name=value" or "name1=value1; name2=value2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers for requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgent overrides the global User-Agent for this site.
	UserAgent string `yaml:"userAgent,omitempty"`
}

// File is the structure of the .msl.yaml configuration file.
type File struct {
	// Sites maps hostnames to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults is applied to every site unless overridden per site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// SiteConfigFor returns the effective settings for a hostname: the
// defaults with any site-specific values layered on top.
func (cf *File) SiteConfigFor(host string) SiteConfig {
	result := cf.Defaults

	site, ok := cf.Sites[host]
	if !ok {
		return result
	}

	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	if len(site.Headers) > 0 {
		merged := make(map[string]string, len(result.Headers)+len(site.Headers))
		for k, v := range result.Headers {
			merged[k] = v
		}
		for k, v := range site.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}

	return result
}

// RequestHeaders flattens the site settings into the header map the
// fetcher applies to requests.
func (sc SiteConfig) RequestHeaders() map[string]string {
	headers := make(map[string]string, len(sc.Headers)+2)
	for k, v := range sc.Headers {
		headers[k] = v
	}
	if sc.Cookie != "" {
		headers["Cookie"] = sc.Cookie
	}
	if sc.UserAgent != "" {
		headers["User-Agent"] = sc.UserAgent
	}
	return headers
}
