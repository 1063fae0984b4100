// Package crawler implements scoped URL discovery: sitemap resolution,
// breadth-first crawling with a pluggable fetcher, robots.txt gating,
// and canonical-URL deduplication.
package crawler
