package extract

import (
	"github.com/chrisw65/market-profile/internal/skool/loader"
	"github.com/chrisw65/market-profile/internal/skool/rawrecord"
)

var (
	classroomArrayKeys  = []string{"classroom", "modules", "courses", "items", "data"}
	classroomCourseKeys = []string{"course", "classroom"}
	courseArrayKeys     = []string{"modules", "lessons", "items"}
)

var courseSchemaTypes = map[string]bool{
	"Course":           true,
	"CreativeWork":     true,
	"LearningResource": true,
}

// Classroom returns the raw module records of a classroom page in source
// order: top level page prop arrays, then arrays nested in a course object,
// then course shaped structured-data blocks.
func Classroom(payload loader.Payload) []rawrecord.Record {
	modules := []rawrecord.Record{}

	pageProps, ok := PageProps(payload.NextData)
	if ok {
		for _, key := range classroomArrayKeys {
			arr, ok := arrayUnder(pageProps, key)
			if ok {
				modules = append(modules, rawrecord.Objects(arr)...)
			}
		}

		for _, key := range classroomCourseKeys {
			course, ok := rawrecord.Object(pageProps, key)
			if !ok {
				continue
			}
			for _, nested := range courseArrayKeys {
				arr, ok := arrayUnder(course, nested)
				if ok {
					modules = append(modules, rawrecord.Objects(arr)...)
				}
			}
		}
	}

	for _, block := range payload.LdJSON {
		if arr, ok := block.([]any); ok {
			for _, entry := range arr {
				rec, ok := courseSchema(entry)
				if ok {
					modules = append(modules, rec)
				}
			}
			continue
		}
		rec, ok := courseSchema(block)
		if ok {
			modules = append(modules, rec)
		}
	}

	return modules
}

func courseSchema(value any) (rawrecord.Record, bool) {
	rec, ok := rawrecord.AsRecord(value)
	if !ok {
		return nil, false
	}
	schemaType, ok := rec["@type"].(string)
	if !ok || !courseSchemaTypes[schemaType] {
		return nil, false
	}
	return rec, true
}
