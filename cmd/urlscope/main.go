// Package main provides the entry point for the urlscope CLI.
//
// urlscope discovers the in-scope URLs of a website before scraping:
// it resolves sitemaps, crawls within the base domain, classifies each
// canonical URL against configured patterns, and emits a deduplicated
// inventory.
//
// Usage:
//
//	urlscope discover https://pulse.example.com
//	urlscope discover -c patterns.yaml https://pulse.example.com
//
// See --help for all available options.
package main

// main is the entry point for urlscope.
func main() {
	Execute()
}
