// Package profile synthesizes a marketing profile of a community from the
// group record embedded in its about page.
package profile

import (
	"encoding/json"
	"strings"

	"github.com/chrisw65/market-profile/internal/skool/model"
	rr "github.com/chrisw65/market-profile/internal/skool/rawrecord"
)

// ExtractGroup locates nextData.props.pageProps.currentGroup. A profile
// cannot be built without it.
func ExtractGroup(nextData any) (rr.Record, bool) {
	root, ok := rr.AsRecord(nextData)
	if !ok {
		return nil, false
	}
	props, ok := rr.Object(root, "props")
	if !ok {
		return nil, false
	}
	pageProps, ok := rr.Object(props, "pageProps")
	if !ok {
		return nil, false
	}
	return rr.Object(pageProps, "currentGroup")
}

// Build never fails, each embedded JSON blob that cannot be decoded leaves its
// section of the profile empty.
func Build(slug string, group rr.Record) model.CommunityProfile {
	meta, _ := rr.Object(group, "metadata")

	lpDescription := rr.FirstString(meta, "lpDescription")
	tagline := rr.FirstString(meta, "description")

	desc := ParseDescription(lpDescription)
	keywords := Keywords(tagline+" "+lpDescription, DefaultKeywordLimit)

	return model.CommunityProfile{
		Community: model.Community{
			Slug:          slug,
			Name:          rr.FirstString(meta, "displayName"),
			Tagline:       tagline,
			HeroStatement: desc.Hero,
			Color:         rr.FirstString(meta, "color"),
			Plan:          rr.FirstString(meta, "plan"),
			Privacy:       rr.FirstNumber(meta, "privacy"),
			Members:       rr.FirstNumber(meta, "totalMembers"),
			OnlineMembers: rr.FirstNumber(meta, "totalOnlineMembers"),
			Posts:         rr.FirstNumber(meta, "totalPosts"),
			Courses:       rr.FirstNumber(meta, "numCourses"),
			Modules:       rr.FirstNumber(meta, "numModules"),
			CreatedAt:     rr.FirstString(group, "createdAt"),
			UpdatedAt:     rr.FirstString(group, "updatedAt"),
		},
		Owner: parseOwner(meta["owner"]),
		ValueStack: model.ValueStack{
			Promise:    desc.Hero,
			Experience: desc.Features,
			NextSteps:  desc.Actions,
		},
		Keywords:        keywords,
		Media:           parseAttachments(meta["lpAttachmentsData"]),
		SurveyQuestions: parseSurvey(meta["survey"]),
		AdStrategy:      Strategy(desc, keywords),
	}
}

// decodeBlob accepts either a JSON encoded object or an already decoded one.
func decodeBlob(value any) (rr.Record, bool) {
	switch v := value.(type) {
	case string:
		var decoded any
		err := json.Unmarshal([]byte(v), &decoded)
		if err != nil {
			return nil, false
		}
		return rr.AsRecord(decoded)
	case map[string]any:
		return v, true
	}
	return nil, false
}

func parseOwner(value any) model.Owner {
	owner, ok := decodeBlob(value)
	if !ok {
		return model.Owner{}
	}

	name := rr.FirstString(owner, "name")
	first := rr.FirstString(owner, "first_name")
	last := rr.FirstString(owner, "last_name")
	if first != "" || last != "" {
		name = strings.TrimSpace(first + " " + last)
	}

	ownerMeta, _ := rr.Object(owner, "metadata")
	return model.Owner{
		ID:       rr.FirstString(owner, "id"),
		Name:     name,
		Location: rr.FirstString(ownerMeta, "location"),
		Bio:      rr.FirstString(ownerMeta, "bio"),
	}
}

func parseSurvey(value any) []model.SurveyQuestion {
	questions := []model.SurveyQuestion{}
	survey, ok := decodeBlob(value)
	if !ok {
		return questions
	}
	for _, entry := range rr.Items(survey["survey"]) {
		questions = append(questions, model.SurveyQuestion{
			Question: rr.FirstString(entry, "question"),
			Type:     rr.FirstString(entry, "type"),
		})
	}
	return questions
}

func parseAttachments(value any) []model.Media {
	media := []model.Media{}
	blob, ok := decodeBlob(value)
	if !ok {
		return media
	}
	for _, attachment := range rr.Items(blob["attachments_data"]) {
		image, _ := rr.Object(attachment, "image")
		url := rr.FirstString(image, "original_url")
		if url == "" {
			continue
		}
		media = append(media, model.Media{
			ID:    rr.FirstString(attachment, "id"),
			URL:   url,
			Small: rr.FirstString(image, "small_url"),
		})
	}
	return media
}
