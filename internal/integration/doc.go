// Package integration holds end-to-end tests that exercise the document
// store, the indexing pipeline and the search engine together on disk.
package integration
