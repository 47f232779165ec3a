package normalize

import (
	"github.com/chrisw65/market-profile/internal/skool/model"
	rr "github.com/chrisw65/market-profile/internal/skool/rawrecord"
)

// Comments accepts a bare array of comment records or an object wrapping one
// under "items", and returns the comments arranged as a reply tree. Records
// without an id are dropped.
func Comments(raw any) []model.Comment {
	records := rr.Items(raw)
	flat := make([]model.Comment, 0, len(records))
	for _, record := range records {
		comment, ok := Comment(record)
		if ok {
			flat = append(flat, comment)
		}
	}
	return BuildTree(flat)
}

// Comment maps a single raw comment, which may wrap the comment under "post".
func Comment(record rr.Record) (model.Comment, bool) {
	node, ok := rr.Object(record, "post")
	if !ok {
		node = record
	}

	id := rr.FirstString(node, "id", "comment_id")
	if id == "" {
		return model.Comment{}, false
	}

	meta, _ := rr.Object(node, "metadata")
	return model.Comment{
		ID:        id,
		ParentID:  rr.FirstString(node, "parent_id"),
		RootID:    rr.FirstString(node, "root_id", "rootId"),
		Content:   rr.FirstString(meta, "content"),
		CreatedAt: isoDate(node, "created_at", "createdAt"),
		UpdatedAt: isoDate(node, "updated_at", "updatedAt"),
		Metadata: model.CommentMetadata{
			Action:          rr.FirstNumber(meta, "action"),
			Upvotes:         rr.FirstNumber(meta, "upvotes"),
			Attachments:     rr.FirstString(meta, "attachments"),
			AttachmentsData: rr.FirstString(meta, "attachments_data"),
		},
		User:    User(node["user"]),
		Replies: []model.Comment{},
	}, true
}
