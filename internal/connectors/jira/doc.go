// Package jira fetches issues from Jira Cloud.
//
// Issue search uses the token-cursor protocol of /rest/api/3/search/jql:
// each page carries an isLast flag and an opaque nextPageToken, and the
// loop never consults a total count (stale totals silently truncate
// results). Project discovery runs when no project keys are configured.
// Issue descriptions are delivered as Atlassian Document Format JSON and
// left for the normaliser to interpret; comments ride along in record
// metadata.
package jira
