package sharepoint

// site identifies a SharePoint site.
type site struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// drive identifies a site's default document library.
type drive struct {
	ID string `json:"id"`
}

// driveItem is a file or folder in a drive listing. The file and folder
// facets are mutually exclusive; whichever is non-nil decides how the
// walk treats the item.
type driveItem struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	WebURL               string       `json:"webUrl"`
	Size                 int64        `json:"size"`
	CreatedDateTime      string       `json:"createdDateTime"`
	LastModifiedDateTime string       `json:"lastModifiedDateTime"`
	DownloadURL          string       `json:"@microsoft.graph.downloadUrl"`
	File                 *fileFacet   `json:"file"`
	Folder               *folderFacet `json:"folder"`
	ParentReference      *parentRef   `json:"parentReference"`
	LastModifiedBy       *identitySet `json:"lastModifiedBy"`
}

// fileFacet marks an item as a file and carries its MIME type.
type fileFacet struct {
	MimeType string `json:"mimeType"`
}

// folderFacet marks an item as a folder.
type folderFacet struct {
	ChildCount int `json:"childCount"`
}

// parentRef locates an item inside its drive.
type parentRef struct {
	Path string `json:"path"`
}

// identitySet is the actor attribution Graph attaches to changes.
type identitySet struct {
	User        *identity `json:"user"`
	Application *identity `json:"application"`
}

// identity is a single named actor.
type identity struct {
	DisplayName string `json:"displayName"`
}

// displayNameOf resolves an identity set to a display name, preferring
// the user over the acting application.
func displayNameOf(set *identitySet, fallback string) string {
	if set != nil {
		if set.User != nil && set.User.DisplayName != "" {
			return set.User.DisplayName
		}
		if set.Application != nil && set.Application.DisplayName != "" {
			return set.Application.DisplayName
		}
	}
	return fallback
}
