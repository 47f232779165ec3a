package normalize

import (
	"github.com/chrisw65/market-profile/internal/skool/model"
)

const noParent = -1

// BuildTree arranges a flat list of comments into reply trees. A comment
// becomes a reply of the comment its ParentID names, otherwise it is a root.
// Reply order within a parent, and root order, follow input order.
//
// When ids repeat, the last comment with that id is the one replies attach
// to. A link that would close a cycle (including a comment naming itself as
// parent) is dropped, leaving that comment as a root, so every input comment
// appears exactly once in the output.
func BuildTree(flat []model.Comment) []model.Comment {
	byID := make(map[string]int, len(flat))
	for i, comment := range flat {
		if comment.ID != "" {
			byID[comment.ID] = i
		}
	}

	parent := make([]int, len(flat))
	for i := range parent {
		parent[i] = noParent
	}
	children := make([][]int, len(flat))
	var roots []int

	for i, comment := range flat {
		p, ok := byID[comment.ParentID]
		if comment.ParentID == "" || !ok || reaches(parent, p, i) {
			roots = append(roots, i)
			continue
		}
		parent[i] = p
		children[p] = append(children[p], i)
	}

	var build func(i int) model.Comment
	build = func(i int) model.Comment {
		comment := flat[i]
		comment.Replies = make([]model.Comment, 0, len(children[i]))
		for _, child := range children[i] {
			comment.Replies = append(comment.Replies, build(child))
		}
		return comment
	}

	out := make([]model.Comment, 0, len(roots))
	for _, root := range roots {
		out = append(out, build(root))
	}
	return out
}

// reaches reports whether target is from or one of its already linked ancestors.
func reaches(parent []int, from, target int) bool {
	for node := from; node != noParent; node = parent[node] {
		if node == target {
			return true
		}
	}
	return false
}
