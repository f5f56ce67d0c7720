// Package sharepoint fetches document-library files from SharePoint via
// Microsoft Graph.
//
// Listing uses the link-style protocol: every collection response may
// carry an @odata.nextLink and the loop follows it until absent. The
// walk goes site, default drive, then recursive folder traversal of the
// drive children. Only text-like files within the size bound are
// downloaded; everything else is skipped at the connector so the index
// never fills with placeholder bodies. SharePoint propagates child
// modification times up the folder tree, so incremental runs can filter
// folders and files alike by lastModifiedDateTime.
package sharepoint
