// Package model holds the structured records a scrape produces. Every value is
// created fresh per scrape and owned by the caller that requested it.
package model

// ItemType discriminates the two SkoolItem variants.
type ItemType string

const (
	ItemModule ItemType = "module"
	ItemPost   ItemType = "post"
)

type UserMetadata struct {
	Bio            string `json:"bio"`
	PictureBubble  string `json:"pictureBubble"`
	PictureProfile string `json:"pictureProfile"`
	Location       string `json:"location"`
	LinkWebsite    string `json:"linkWebsite"`
	LinkYoutube    string `json:"linkYoutube"`
	ActStatus      string `json:"actStatus"`
}

// User is a point-in-time copy of a member, not a reference.
type User struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Metadata  UserMetadata `json:"metadata"`
	CreatedAt string       `json:"createdAt,omitempty"`
	UpdatedAt string       `json:"updatedAt,omitempty"`
	FirstName string       `json:"firstName,omitempty"`
	LastName  string       `json:"lastName,omitempty"`
}

type CommentMetadata struct {
	Action          float64 `json:"action"`
	Upvotes         float64 `json:"upvotes"`
	Attachments     string  `json:"attachments"`
	AttachmentsData string  `json:"attachments_data"`
}

type Comment struct {
	ID        string          `json:"id"`
	ParentID  string          `json:"parentId,omitempty"`
	RootID    string          `json:"rootId,omitempty"`
	Content   string          `json:"content"`
	CreatedAt string          `json:"createdAt,omitempty"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
	Metadata  CommentMetadata `json:"metadata"`
	User      *User           `json:"user,omitempty"`
	Replies   []Comment       `json:"replies"`
}

type PostMetadata struct {
	Action            float64 `json:"action"`
	Comments          float64 `json:"comments"`
	Upvotes           float64 `json:"upvotes"`
	Pinned            float64 `json:"pinned"`
	ImagePreview      string  `json:"imagePreview"`
	ImagePreviewSmall string  `json:"imagePreviewSmall"`
	VideoLinksData    string  `json:"videoLinksData"`
	Contributors      string  `json:"contributors"`
	Labels            string  `json:"labels"`
	HasNewComments    float64 `json:"hasNewComments"`
	LastComment       float64 `json:"lastComment"`
}

// CourseMetaDetails associates a classroom module with its parent course.
type CourseMetaDetails struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// SkoolItem is either a classroom module or a community post. Text fields are
// never absent, they default to "". Comments and Media are never nil.
type SkoolItem struct {
	Type              ItemType           `json:"type"`
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Title             string             `json:"title"`
	PostTitle         string             `json:"postTitle"`
	Content           string             `json:"content"`
	URL               string             `json:"url"`
	URLAjax           string             `json:"urlAjax"`
	Metadata          *PostMetadata      `json:"metadata,omitempty"`
	CreatedAt         string             `json:"createdAt,omitempty"`
	UpdatedAt         string             `json:"updatedAt,omitempty"`
	GroupID           string             `json:"groupId"`
	UserID            string             `json:"userId"`
	PostType          string             `json:"postType"`
	RootID            string             `json:"rootId"`
	ParentID          string             `json:"parentId"`
	LabelID           string             `json:"labelId"`
	User              *User              `json:"user,omitempty"`
	Comments          []Comment          `json:"comments"`
	Media             []string           `json:"media"`
	CourseMetaDetails *CourseMetaDetails `json:"courseMetaDetails,omitempty"`
}

// DisplayTitle is the first non-empty of Title, PostTitle and Name.
func (i SkoolItem) DisplayTitle() string {
	for _, s := range []string{i.Title, i.PostTitle, i.Name} {
		if s != "" {
			return s
		}
	}
	return ""
}
