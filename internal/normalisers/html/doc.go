// Package html provides a Normaliser implementation for HTML records,
// covering Confluence storage format and Teams message bodies. It extracts
// readable text content from HTML, stripping tags, scripts, styles, and
// decoding entities for clean indexable text.
package html
