// Package fetch provides the HTTP-backed Fetcher used in real runs.
//
// The Client wraps net/http with the crawl-oriented behavior the engine
// expects: a User-Agent and accept headers on every request, per-site auth
// headers from the config file, a response body size limit, and an
// optional politeness delay spacing request starts. Fetched documents are
// parsed with goquery, which supplies the CSS selector matching and media
// enumeration behind the engine's Page interface.
package fetch
