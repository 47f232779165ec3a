package normalize

import (
	"testing"

	"github.com/chrisw65/market-profile/internal/skool/model"
	"github.com/chrisw65/market-profile/internal/skool/rawrecord"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestModuleFromEmptyRecord(t *testing.T) {
	item := Module(rawrecord.Record{})
	require.Equal(t, model.ItemModule, item.Type)
	require.Equal(t, "module", item.PostType)
	require.NotNil(t, item.Comments)
	require.NotNil(t, item.Media)
	require.Empty(t, item.Comments)
	require.Empty(t, item.Media)
	require.Nil(t, item.Metadata)
	require.Nil(t, item.CourseMetaDetails)
	require.Nil(t, item.User)
}

func TestModule(t *testing.T) {
	raw := rawrecord.Record{
		"@id":          "mod-1",
		"id":           "",
		"name":         "intro",
		"title":        "Introduction",
		"description":  "Start here",
		"dateCreated":  "2024-03-01T10:00:00Z",
		"dateModified": "not a date",
		"type":         "",
		"media":        []any{" https://a.example/v.mp4 ", "", 5.0},
		"mediaLink":    "https://b.example/v.mp4",
		"about":        "skip me",
		"course": map[string]any{
			"courseId":  "c1",
			"slug":      "book-course",
			"headline":  "Book Course",
			"createdAt": "2024-01-02",
		},
	}

	expected := model.SkoolItem{
		Type:      model.ItemModule,
		ID:        "mod-1",
		Name:      "intro",
		Title:     "Introduction",
		PostTitle: "Introduction",
		Content:   "Start here",
		CreatedAt: "2024-03-01T10:00:00.000Z",
		PostType:  "module",
		Comments:  []model.Comment{},
		Media:     []string{"https://a.example/v.mp4", "https://b.example/v.mp4"},
		CourseMetaDetails: &model.CourseMetaDetails{
			ID:        "c1",
			Name:      "book-course",
			Title:     "Book Course",
			CreatedAt: "2024-01-02T00:00:00.000Z",
		},
	}

	diff := cmp.Diff(expected, Module(raw))
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestPostFromEmptyRecord(t *testing.T) {
	item := Post(rawrecord.Record{})
	require.Equal(t, model.ItemPost, item.Type)
	require.Equal(t, "generic", item.PostType)
	require.NotNil(t, item.Metadata)
	require.NotNil(t, item.Comments)
	require.NotNil(t, item.Media)
	require.Nil(t, item.User)
	require.Nil(t, item.CourseMetaDetails)
}

func TestPostWrapped(t *testing.T) {
	raw := rawrecord.Record{
		"url":     "https://www.skool.com/demo/post-1",
		"groupId": "g1",
		"metadata": map[string]any{
			"title":    "Meta title",
			"content":  "Meta content",
			"comments": 0.0,
			"upvotes":  "7",
			"labels":   "label-1",
			"action":   "nope",
		},
		"post": map[string]any{
			"id":            "p1",
			"name":          "post-1",
			"postType":      "",
			"commentsCount": 4.0,
			"upvotes":       2.0,
			"created_at":    "2024-05-06T07:08:09.123456Z",
			"user": map[string]any{
				"username":   "jane",
				"first_name": "Jane",
				"metadata":   map[string]any{"Bio": "Writer", "website": "https://jane.example"},
			},
			"comments": map[string]any{
				"items": []any{
					map[string]any{"id": "c1", "metadata": map[string]any{"content": "hi", "upvotes": 3.0}},
					map[string]any{"post": map[string]any{"id": "c2", "parent_id": "c1", "user": map[string]any{"id": "u2"}}},
					map[string]any{"metadata": map[string]any{"content": "no id"}},
				},
			},
		},
	}

	item := Post(raw)
	require.Equal(t, "p1", item.ID)
	require.Equal(t, "post-1", item.Name)
	require.Equal(t, "Meta title", item.Title)
	require.Equal(t, "", item.PostTitle)
	require.Equal(t, "Meta content", item.Content)
	require.Equal(t, "https://www.skool.com/demo/post-1", item.URL)
	require.Equal(t, "g1", item.GroupID)
	require.Equal(t, "", item.PostType)
	require.Equal(t, "p1", item.RootID)
	require.Equal(t, "label-1", item.LabelID)
	require.Equal(t, "2024-05-06T07:08:09.123Z", item.CreatedAt)

	require.Equal(t, &model.PostMetadata{
		Comments: 4,
		Upvotes:  7,
		Labels:   "label-1",
	}, item.Metadata)

	require.Equal(t, &model.User{
		Name:      "jane",
		FirstName: "Jane",
		Metadata: model.UserMetadata{
			Bio:         "Writer",
			LinkWebsite: "https://jane.example",
		},
	}, item.User)

	require.Len(t, item.Comments, 1)
	root := item.Comments[0]
	require.Equal(t, "c1", root.ID)
	require.Equal(t, "hi", root.Content)
	require.Equal(t, float64(3), root.Metadata.Upvotes)
	require.Nil(t, root.User)
	require.Len(t, root.Replies, 1)
	require.Equal(t, "c2", root.Replies[0].ID)
	require.Equal(t, &model.User{ID: "u2"}, root.Replies[0].User)
}

func TestPostUnwrapped(t *testing.T) {
	raw := rawrecord.Record{
		"id":       "p2",
		"title":    "Own title",
		"type":     "announcement",
		"rootId":   "r1",
		"labelId":  "l2",
		"meta":     map[string]any{"pinned": 1.0},
		"comments": []any{map[string]any{"comment_id": "c9"}},
	}

	item := Post(raw)
	require.Equal(t, "Own title", item.Title)
	require.Equal(t, "Own title", item.PostTitle)
	require.Equal(t, "announcement", item.PostType)
	require.Equal(t, "r1", item.RootID)
	require.Equal(t, "l2", item.LabelID)
	require.Equal(t, "l2", item.Metadata.Labels)
	require.Equal(t, float64(1), item.Metadata.Pinned)
	require.Len(t, item.Comments, 1)
	require.Equal(t, "c9", item.Comments[0].ID)
}

func TestUser(t *testing.T) {
	table := []struct {
		name     string
		input    any
		expected *model.User
	}{
		{name: "not an object", input: "u1", expected: nil},
		{name: "no id or name", input: map[string]any{"firstName": "A"}, expected: nil},
		{
			name:     "id only",
			input:    map[string]any{"user_id": "u1", "createdAt": "garbage"},
			expected: &model.User{ID: "u1"},
		},
		{
			name: "full",
			input: map[string]any{
				"id":        "u1",
				"name":      "ann",
				"lastName":  "Lee",
				"updatedAt": "2024-02-03T04:05:06Z",
				"metadata": map[string]any{
					"picture_bubble": "b.png",
					"location":       "Leeds",
					"youtube":        "yt",
					"status":         "active",
				},
			},
			expected: &model.User{
				ID:        "u1",
				Name:      "ann",
				LastName:  "Lee",
				UpdatedAt: "2024-02-03T04:05:06.000Z",
				Metadata: model.UserMetadata{
					PictureBubble: "b.png",
					Location:      "Leeds",
					LinkYoutube:   "yt",
					ActStatus:     "active",
				},
			},
		},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, User(test.input))
		})
	}
}

func TestCommentsWithoutIDAreDropped(t *testing.T) {
	comments := Comments([]any{
		map[string]any{"parent_id": "x"},
		map[string]any{"id": ""},
		"not a record",
	})
	require.Empty(t, comments)
	require.NotNil(t, comments)

	require.Empty(t, Comments(nil))
	require.Empty(t, Comments(map[string]any{"items": "x"}))
}
