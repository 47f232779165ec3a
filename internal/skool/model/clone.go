package model

import "slices"

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	return &out
}

func (c Comment) Clone() Comment {
	c.User = c.User.Clone()
	if c.Replies != nil {
		replies := make([]Comment, len(c.Replies))
		for i, reply := range c.Replies {
			replies[i] = reply.Clone()
		}
		c.Replies = replies
	}
	return c
}

// Clone returns a deep copy of the item, nothing is shared with i.
func (i SkoolItem) Clone() SkoolItem {
	if i.Metadata != nil {
		meta := *i.Metadata
		i.Metadata = &meta
	}
	if i.CourseMetaDetails != nil {
		details := *i.CourseMetaDetails
		i.CourseMetaDetails = &details
	}
	i.User = i.User.Clone()
	if i.Comments != nil {
		comments := make([]Comment, len(i.Comments))
		for n, comment := range i.Comments {
			comments[n] = comment.Clone()
		}
		i.Comments = comments
	}
	i.Media = slices.Clone(i.Media)
	return i
}

// CloneItems deep copies the first max items, a negative max keeps all of
// them.
func CloneItems(items []SkoolItem, max int) []SkoolItem {
	if items == nil {
		return nil
	}
	if max >= 0 && len(items) > max {
		items = items[:max]
	}
	out := make([]SkoolItem, len(items))
	for n, item := range items {
		out[n] = item.Clone()
	}
	return out
}

func (p *CommunityProfile) Clone() *CommunityProfile {
	if p == nil {
		return nil
	}
	out := *p
	out.ValueStack.Experience = slices.Clone(p.ValueStack.Experience)
	out.ValueStack.NextSteps = slices.Clone(p.ValueStack.NextSteps)
	out.Keywords = slices.Clone(p.Keywords)
	out.Media = slices.Clone(p.Media)
	out.SurveyQuestions = slices.Clone(p.SurveyQuestions)
	out.AdStrategy.Hooks = slices.Clone(p.AdStrategy.Hooks)
	out.AdStrategy.Angles = slices.Clone(p.AdStrategy.Angles)
	out.AdStrategy.Targeting = slices.Clone(p.AdStrategy.Targeting)
	out.AdStrategy.CallsToAction = slices.Clone(p.AdStrategy.CallsToAction)
	return &out
}
