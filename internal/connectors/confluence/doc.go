// Package confluence fetches wiki pages from Confluence Cloud.
//
// Content listing uses the size-threshold protocol of /rest/api/content:
// pages are requested by start offset and limit, a page shorter than the
// requested limit is the last one, and the offset advances by the
// returned size rather than the requested limit. The reported total is
// never consulted (stale totals silently truncate results). Space
// discovery runs when no space keys are configured. Page bodies are
// Confluence storage-format XHTML and left for the normaliser to strip;
// comments ride along in record metadata.
package confluence
