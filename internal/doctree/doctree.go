package doctree

// DocTree is the load/save shape of a document outline: what importers
// produce and what writers consume.
type DocTree struct {
	Title     string     `json:"title,omitempty" yaml:"title,omitempty"`         // Document title (from metadata or filename)
	PageCount int        `json:"page_count" yaml:"page_count"`                   // 0 if unknown
	Children  []*DocNode `json:"bookmarks,omitempty" yaml:"bookmarks,omitempty"` // Top-level bookmarks
}

// DocNode is one bookmark and its nested bookmarks.
type DocNode struct {
	Title    string     `json:"title" yaml:"title"`
	Page     int        `json:"page" yaml:"page"` // Zero-based target page
	Children []*DocNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// Range is a contiguous page span owned by one bookmark.
type Range struct {
	Title      string   `json:"title"`
	Level      int      `json:"level"`
	Breadcrumb []string `json:"breadcrumb"` // Titles from the top level down, e.g. ["Part I", "Chapter 2"]
	PageStart  int      `json:"page_start"` // Zero-based, inclusive
	PageEnd    int      `json:"page_end"`   // Zero-based, inclusive
}

// Walk visits every node in display order with its level (top level = 1).
func (t *DocTree) Walk(fn func(n *DocNode, level int)) {
	var visit func(nodes []*DocNode, level int)
	visit = func(nodes []*DocNode, level int) {
		for _, n := range nodes {
			fn(n, level)
			visit(n.Children, level+1)
		}
	}
	visit(t.Children, 1)
}

// Count returns the number of bookmarks in the tree.
func (t *DocTree) Count() int {
	n := 0
	t.Walk(func(*DocNode, int) { n++ })
	return n
}

// MaxPage returns the highest target page, or -1 for an empty tree.
func (t *DocTree) MaxPage() int {
	max := -1
	t.Walk(func(n *DocNode, _ int) {
		if n.Page > max {
			max = n.Page
		}
	})
	return max
}
