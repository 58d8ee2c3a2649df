package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/rs/zerolog/log"

	"github.com/civiclens/permit-crawler/common/models"
)

// Archiver writes one snapshot per permit: the raw page HTML and a markdown
// rendition that is cheap to diff and read. Archiving is best-effort; a
// failed upload is logged and never fails the crawl.
type Archiver struct {
	storage   StorageService
	bucket    string
	converter *md.Converter
}

// NewArchiver builds an archiver writing into bucket. A nil storage service
// or empty bucket disables archiving; Snapshot becomes a no-op.
func NewArchiver(storage StorageService, bucket string) *Archiver {
	return &Archiver{
		storage:   storage,
		bucket:    bucket,
		converter: md.NewConverter("", true, nil),
	}
}

// Enabled reports whether snapshots will actually be written.
func (a *Archiver) Enabled() bool {
	return a.storage != nil && a.bucket != ""
}

// Snapshot stores the page HTML for one permit under a date-partitioned
// object path, plus a markdown rendition next to it.
func (a *Archiver) Snapshot(ctx context.Context, siteID string, p models.Permit, html string) {
	if !a.Enabled() || html == "" {
		return
	}

	base := objectBase(siteID, p)
	if _, err := a.storage.Upload(ctx, a.bucket, base+".html", []byte(html), "text/html"); err != nil {
		log.Warn().Str("site", siteID).Str("permit", p.PermitNumber).Err(err).Msg("snapshot upload failed")
		return
	}

	markdown, err := a.converter.ConvertString(html)
	if err != nil {
		log.Debug().Str("site", siteID).Str("permit", p.PermitNumber).Err(err).Msg("markdown rendition failed")
		return
	}
	if _, err := a.storage.Upload(ctx, a.bucket, base+".md", []byte(markdown), "text/markdown"); err != nil {
		log.Warn().Str("site", siteID).Str("permit", p.PermitNumber).Err(err).Msg("markdown upload failed")
	}
}

func objectBase(siteID string, p models.Permit) string {
	day := time.Now().UTC().Format("2006/01/02")
	return fmt.Sprintf("snapshots/%s/%s/%s", siteID, day, sanitize(p.PermitNumber))
}

// sanitize keeps object names flat; permit numbers occasionally carry
// slashes.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
