package normalize

import (
	"github.com/chrisw65/market-profile/internal/skool/model"
	rr "github.com/chrisw65/market-profile/internal/skool/rawrecord"
)

// Post maps a raw feed record onto a post item. The record is either the post
// itself or a wrapper carrying it under "post", engagement counters live in
// "metadata" (or "meta") on the wrapper.
func Post(raw rr.Record) model.SkoolItem {
	meta, ok := rr.Object(raw, "metadata")
	if !ok {
		meta, _ = rr.Object(raw, "meta")
	}
	core, ok := rr.Object(raw, "post")
	if !ok {
		core = raw
	}

	commentsRaw, ok := core["comments"]
	if !ok || commentsRaw == nil {
		commentsRaw = raw["comments"]
	}

	return model.SkoolItem{
		Type:      model.ItemPost,
		ID:        rr.FirstString(core, "id", "post_id", "uuid"),
		Name:      rr.FirstString(core, "name", "slug"),
		Title:     orElse(rr.FirstString(core, "title", "postTitle"), rr.FirstString(meta, "title")),
		PostTitle: rr.FirstString(core, "postTitle", "title"),
		Content:   orElse(rr.FirstString(core, "content"), rr.FirstString(meta, "content")),
		URL:       orElse(rr.FirstString(core, "url"), rr.FirstString(raw, "url")),
		URLAjax:   orElse(rr.FirstString(core, "urlAjax"), rr.FirstString(raw, "urlAjax")),
		Metadata:  postMetadata(core, meta),
		CreatedAt: isoDate(core, "createdAt", "created_at"),
		UpdatedAt: isoDate(core, "updatedAt", "updated_at"),
		GroupID:   orElse(rr.FirstString(core, "groupId"), rr.FirstString(raw, "groupId")),
		UserID:    orElse(rr.FirstString(core, "userId"), rr.FirstString(raw, "userId")),
		PostType:  stringOr(core, "generic", "postType", "type"),
		RootID: orElse(
			rr.FirstString(core, "rootId"),
			rr.FirstString(raw, "rootId"),
			rr.FirstString(core, "id"),
		),
		ParentID: rr.FirstString(core, "parent_id"),
		LabelID:  orElse(rr.FirstString(core, "labelId"), rr.FirstString(meta, "labels")),
		User:     User(core["user"]),
		Comments: Comments(commentsRaw),
		Media:    []string{},
	}
}

func postMetadata(core, meta rr.Record) *model.PostMetadata {
	return &model.PostMetadata{
		Action:            rr.FirstNumber(meta, "action"),
		Comments:          orElseNumber(rr.FirstNumber(meta, "comments"), rr.FirstNumber(core, "commentsCount")),
		Upvotes:           orElseNumber(rr.FirstNumber(meta, "upvotes"), rr.FirstNumber(core, "upvotes")),
		Pinned:            orElseNumber(rr.FirstNumber(meta, "pinned"), rr.FirstNumber(core, "pinned")),
		ImagePreview:      rr.FirstString(meta, "imagePreview"),
		ImagePreviewSmall: rr.FirstString(meta, "imagePreviewSmall"),
		VideoLinksData:    rr.FirstString(meta, "videoLinksData"),
		Contributors:      rr.FirstString(meta, "contributors"),
		Labels:            orElse(rr.FirstString(meta, "labels"), rr.FirstString(core, "labelId")),
		HasNewComments:    rr.FirstNumber(meta, "hasNewComments"),
		LastComment:       rr.FirstNumber(meta, "lastComment"),
	}
}
