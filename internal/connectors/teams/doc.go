// Package teams fetches channel messages from Microsoft Teams via
// Microsoft Graph.
//
// Listing uses the link-style protocol: every collection response may
// carry an @odata.nextLink and the loop follows it until absent. The
// walk goes joined teams, channels, then channel message threads; reply
// threads are expanded in place and ride along in record metadata with a
// reference to their parent message. Message bodies are Teams HTML and
// left for the normaliser to strip.
package teams
