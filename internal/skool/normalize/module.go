package normalize

import (
	"strings"

	"github.com/chrisw65/market-profile/internal/skool/model"
	rr "github.com/chrisw65/market-profile/internal/skool/rawrecord"
)

var (
	courseMetaKeys = []string{"courseMetaDetails", "course", "about", "inCourse"}
	mediaKeys      = []string{"media", "video", "videos", "mediaLinks", "mediaLink"}
)

// Module maps a raw classroom record onto a module item. Module string fields
// skip empty values when looking through alternate keys.
func Module(raw rr.Record) model.SkoolItem {
	return model.SkoolItem{
		Type:              model.ItemModule,
		ID:                rr.FirstNonEmpty(raw, "id", "@id"),
		Name:              rr.FirstNonEmpty(raw, "name"),
		Title:             rr.FirstNonEmpty(raw, "title"),
		PostTitle:         rr.FirstNonEmpty(raw, "postTitle", "title"),
		Content:           rr.FirstNonEmpty(raw, "content", "description"),
		URL:               rr.FirstNonEmpty(raw, "url"),
		URLAjax:           rr.FirstNonEmpty(raw, "urlAjax"),
		CreatedAt:         isoDate(raw, "createdAt", "dateCreated"),
		UpdatedAt:         isoDate(raw, "updatedAt", "dateModified"),
		GroupID:           rr.FirstNonEmpty(raw, "groupId"),
		UserID:            rr.FirstNonEmpty(raw, "userId"),
		PostType:          orElse(rr.FirstNonEmpty(raw, "type"), string(model.ItemModule)),
		RootID:            rr.FirstNonEmpty(raw, "rootId"),
		ParentID:          rr.FirstNonEmpty(raw, "parent_id"),
		LabelID:           rr.FirstNonEmpty(raw, "labelId"),
		Comments:          []model.Comment{},
		Media:             collectMedia(raw),
		CourseMetaDetails: courseMeta(raw),
	}
}

func collectMedia(raw rr.Record) []string {
	media := []string{}
	add := func(value any) {
		str, ok := value.(string)
		if !ok {
			return
		}
		str = strings.TrimSpace(str)
		if str != "" {
			media = append(media, str)
		}
	}

	for _, key := range mediaKeys {
		switch v := raw[key].(type) {
		case []any:
			for _, entry := range v {
				add(entry)
			}
		case string:
			add(v)
		}
	}
	return media
}

func courseMeta(raw rr.Record) *model.CourseMetaDetails {
	for _, key := range courseMetaKeys {
		course, ok := rr.Object(raw, key)
		if !ok {
			continue
		}
		return &model.CourseMetaDetails{
			ID:        rr.FirstNonEmpty(course, "id", "@id", "courseId"),
			Name:      rr.FirstNonEmpty(course, "name", "slug"),
			Title:     rr.FirstNonEmpty(course, "title", "headline", "name"),
			CreatedAt: isoDate(course, "createdAt", "dateCreated"),
			UpdatedAt: isoDate(course, "updatedAt", "dateModified"),
		}
	}
	return nil
}
