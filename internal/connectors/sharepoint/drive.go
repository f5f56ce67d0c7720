package sharepoint

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/quarry-labs/quarry-cli/internal/connectors/graph"
	"github.com/quarry-labs/quarry-cli/internal/core/domain"
)

// ListSites returns every site visible to the application, following
// next links until absent.
func ListSites(ctx context.Context, client *graph.Client) ([]site, error) {
	query := url.Values{}
	query.Set("search", "*")

	var sites []site
	err := client.ListAll(ctx, "list sites", "/sites", query, func(raw json.RawMessage) error {
		var s site
		if err := json.Unmarshal(raw, &s); err != nil {
			return decodeError("list sites", err)
		}
		sites = append(sites, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sites, nil
}

// GetSite fetches one site by its Graph ID.
func GetSite(ctx context.Context, client *graph.Client, siteID string) (site, error) {
	var s site
	if err := client.GetJSON(ctx, "get site", "/sites/"+siteID, nil, &s); err != nil {
		return site{}, err
	}
	return s, nil
}

// GetDrive fetches a site's default document library.
func GetDrive(ctx context.Context, client *graph.Client, siteID string) (drive, error) {
	var d drive
	if err := client.GetJSON(ctx, "get drive", "/sites/"+siteID+"/drive", nil, &d); err != nil {
		return drive{}, err
	}
	return d, nil
}

// decodeError reports an undecodable collection item as a transport
// problem.
func decodeError(op string, err error) error {
	return &domain.TransportError{Source: domain.SourceSharePoint, Op: op, Err: err}
}

// mimeContentTypes maps downloadable MIME types onto the canonical
// content types the normalisers dispatch on.
var mimeContentTypes = map[string]string{
	"text/plain":       domain.ContentTypePlain,
	"text/markdown":    domain.ContentTypeMarkdown,
	"text/html":        domain.ContentTypeHTML,
	"text/csv":         domain.ContentTypePlain,
	"application/json": domain.ContentTypePlain,
	"application/xml":  domain.ContentTypePlain,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": domain.ContentTypeDocx,
}

// extContentTypes covers files whose MIME type SharePoint leaves blank
// or generic; the extension decides instead.
var extContentTypes = map[string]string{
	".md":       domain.ContentTypeMarkdown,
	".markdown": domain.ContentTypeMarkdown,
	".txt":      domain.ContentTypePlain,
	".html":     domain.ContentTypeHTML,
	".htm":      domain.ContentTypeHTML,
	".json":     domain.ContentTypePlain,
	".xml":      domain.ContentTypePlain,
	".csv":      domain.ContentTypePlain,
	".docx":     domain.ContentTypeDocx,
}

// recordContentType decides whether an item is indexable and, if so,
// which canonical content type its body carries. The MIME type wins;
// the file extension covers blank or octet-stream MIME types.
func recordContentType(item driveItem) (string, bool) {
	if item.File != nil && item.File.MimeType != "" {
		mime := item.File.MimeType
		if i := strings.IndexByte(mime, ';'); i >= 0 {
			mime = strings.TrimSpace(mime[:i])
		}
		if ct, ok := mimeContentTypes[strings.ToLower(mime)]; ok {
			return ct, true
		}
		if mime != "application/octet-stream" {
			return "", false
		}
	}
	if ct, ok := extContentTypes[strings.ToLower(path.Ext(item.Name))]; ok {
		return ct, true
	}
	return "", false
}

// encodeContent prepares downloaded bytes for the extraction envelope.
// Text passes through; Word archives are base64 encoded so the binary
// survives NDJSON.
func encodeContent(content, contentType string) string {
	if contentType == domain.ContentTypeDocx {
		return base64.StdEncoding.EncodeToString([]byte(content))
	}
	return content
}

// buildRecord maps a downloaded file onto the extraction envelope.
func buildRecord(sp site, item driveItem, content, contentType string) domain.RawRecord {
	metadata := map[string]any{
		"sharepoint_site_id":   sp.ID,
		"sharepoint_site_name": siteName(sp),
		"mime_type":            mimeType(item),
		"size":                 item.Size,
	}
	if item.ParentReference != nil && item.ParentReference.Path != "" {
		metadata["sharepoint_file_path"] = item.ParentReference.Path
	}

	return domain.RawRecord{
		Source:      domain.SourceSharePoint,
		SourceID:    item.ID,
		URL:         item.WebURL,
		Title:       item.Name,
		Content:     content,
		ContentType: contentType,
		Author:      displayNameOf(item.LastModifiedBy, "Unknown"),
		CreatedAt:   item.CreatedDateTime,
		UpdatedAt:   item.LastModifiedDateTime,
		Metadata:    metadata,
	}
}

func siteName(sp site) string {
	if sp.DisplayName != "" {
		return sp.DisplayName
	}
	return sp.Name
}

func mimeType(item driveItem) string {
	if item.File == nil {
		return ""
	}
	return item.File.MimeType
}
