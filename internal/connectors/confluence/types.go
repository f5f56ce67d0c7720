package confluence

// contentPage is one page of a /rest/api/content listing. The response
// also reports a total, which the loop never reads; the returned size is
// the only trustworthy pagination signal.
type contentPage struct {
	Results []page `json:"results"`
}

// page is a Confluence page with the expansions the connector requests.
type page struct {
	ID      string       `json:"id"`
	Title   string       `json:"title"`
	Body    *pageBody    `json:"body"`
	Version *pageVersion `json:"version"`
	History *pageHistory `json:"history"`
	Links   *pageLinks   `json:"_links"`
}

// pageBody carries the storage-format representation of a page body.
type pageBody struct {
	Storage storageValue `json:"storage"`
}

// storageValue is the {value: ...} wrapper around storage-format XHTML.
type storageValue struct {
	Value string `json:"value"`
}

// pageVersion identifies the latest revision of a page.
type pageVersion struct {
	When string     `json:"when"`
	By   *userField `json:"by"`
}

// pageHistory carries creation metadata for a page or comment.
type pageHistory struct {
	CreatedDate string     `json:"createdDate"`
	CreatedBy   *userField `json:"createdBy"`
}

// pageLinks carries the web UI path of a page relative to the site root.
type pageLinks struct {
	WebUI string `json:"webui"`
}

// userField is the subset of a Confluence user we care about.
type userField struct {
	DisplayName string `json:"displayName"`
}

// spacePage is one page of a /rest/api/space listing.
type spacePage struct {
	Results []space `json:"results"`
}

// space identifies a Confluence space.
type space struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// commentPage is one page of a /child/comment listing.
type commentPage struct {
	Results []comment `json:"results"`
}

// comment is one page comment.
type comment struct {
	ID      string       `json:"id"`
	Body    *pageBody    `json:"body"`
	History *pageHistory `json:"history"`
}
