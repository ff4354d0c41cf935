// Package main provides the entry point for the msl CLI.
//
// msl executes declarative media scraping scripts: small programs that
// open a page, follow links, and save matching media files.
//
// Usage:
//
//	msl run gallery.msl
//	msl parse gallery.msl
//	msl history
//
// See --help for all available options.
package main

// main is the entry point for msl.
func main() {
	Execute()
}
