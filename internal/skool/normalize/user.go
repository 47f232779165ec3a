// Package normalize maps raw hydration records onto the model types. Every
// function here is total: missing or mistyped fields degrade to zero values
// instead of failing.
package normalize

import (
	"github.com/chrisw65/market-profile/internal/skool/model"
	rr "github.com/chrisw65/market-profile/internal/skool/rawrecord"
)

// User returns nil when raw is not an object or carries neither an id nor a
// name.
func User(raw any) *model.User {
	rec, ok := rr.AsRecord(raw)
	if !ok {
		return nil
	}

	id := rr.FirstString(rec, "id", "userId", "user_id")
	name := rr.FirstString(rec, "name", "username")
	if id == "" && name == "" {
		return nil
	}

	meta, _ := rr.Object(rec, "metadata")
	return &model.User{
		ID:   id,
		Name: name,
		Metadata: model.UserMetadata{
			Bio:            rr.FirstString(meta, "bio", "Bio"),
			PictureBubble:  rr.FirstString(meta, "pictureBubble", "picture_bubble"),
			PictureProfile: rr.FirstString(meta, "pictureProfile", "picture_profile"),
			Location:       rr.FirstString(meta, "location"),
			LinkWebsite:    rr.FirstString(meta, "linkWebsite", "website"),
			LinkYoutube:    rr.FirstString(meta, "linkYoutube", "youtube"),
			ActStatus:      rr.FirstString(meta, "actStatus", "status"),
		},
		CreatedAt: isoDate(rec, "createdAt", "created_at"),
		UpdatedAt: isoDate(rec, "updatedAt", "updated_at"),
		FirstName: rr.FirstString(rec, "firstName", "first_name"),
		LastName:  rr.FirstString(rec, "lastName", "last_name"),
	}
}

func isoDate(rec rr.Record, keys ...string) string {
	value, _ := rr.FirstValue(rec, keys...)
	return rr.ISODate(value)
}

// stringOr is FirstString with a fallback used only when no key holds a string.
func stringOr(rec rr.Record, fallback string, keys ...string) string {
	value, ok := rr.LookupString(rec, keys...)
	if !ok {
		return fallback
	}
	return value
}

// orElse returns the first non-empty string.
func orElse(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func orElseNumber(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
