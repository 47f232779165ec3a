package model

type Community struct {
	Slug          string  `json:"slug"`
	Name          string  `json:"name,omitempty"`
	Tagline       string  `json:"tagline,omitempty"`
	HeroStatement string  `json:"hero_statement,omitempty"`
	Color         string  `json:"color,omitempty"`
	Plan          string  `json:"plan,omitempty"`
	Privacy       float64 `json:"privacy"`
	Members       float64 `json:"members"`
	OnlineMembers float64 `json:"online_members"`
	Posts         float64 `json:"posts"`
	Courses       float64 `json:"courses"`
	Modules       float64 `json:"modules"`
	CreatedAt     string  `json:"created_at,omitempty"`
	UpdatedAt     string  `json:"updated_at,omitempty"`
}

type Owner struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Location string `json:"location,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

type ValueStack struct {
	Promise    string   `json:"promise"`
	Experience []string `json:"experience"`
	NextSteps  []string `json:"next_steps"`
}

type Media struct {
	ID    string `json:"id,omitempty"`
	URL   string `json:"url"`
	Small string `json:"small,omitempty"`
}

type SurveyQuestion struct {
	Question string `json:"question"`
	Type     string `json:"type,omitempty"`
}

type Angle struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type AdStrategy struct {
	HeroSummary   string   `json:"hero_summary"`
	Hooks         []string `json:"hooks"`
	Angles        []Angle  `json:"angles"`
	Targeting     []string `json:"targeting"`
	CallsToAction []string `json:"calls_to_action"`
}

// CommunityProfile is the marketing view of a community synthesized from its
// about page.
type CommunityProfile struct {
	Community       Community        `json:"community"`
	Owner           Owner            `json:"owner"`
	ValueStack      ValueStack       `json:"value_stack"`
	Keywords        []string         `json:"keywords"`
	Media           []Media          `json:"media"`
	SurveyQuestions []SurveyQuestion `json:"survey_questions"`
	AdStrategy      AdStrategy       `json:"ad_strategy"`
}

const (
	SectionProfile   = "profile"
	SectionClassroom = "classroom"
	SectionPosts     = "posts"
)

// Snapshot is the result of scraping every section of a community at once.
// Unavailable lists the sections that came back empty because their load failed.
type Snapshot struct {
	Slug        string            `json:"slug"`
	Profile     *CommunityProfile `json:"profile"`
	Classroom   []SkoolItem       `json:"classroom"`
	Posts       []SkoolItem       `json:"posts"`
	Unavailable []string          `json:"unavailable,omitempty"`
}
