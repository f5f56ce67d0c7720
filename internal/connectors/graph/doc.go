// Package graph is the Microsoft Graph client shared by the SharePoint
// and Teams connectors.
//
// Authentication is app-only: an OAuth2 client-credentials token source
// against the tenant token endpoint with the .default scope. Collection
// listing uses the link-style protocol: every response may carry an
// @odata.nextLink, and the loop follows it until absent. There is no
// total to consult and no offset to advance; the link is the whole
// protocol.
package graph
