package pagination

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Page is a 1-based offset page.
type Page struct {
	Number  int
	PerPage int
}

func NewPage(number, perPage int) Page {
	p := Page{Number: max(number, 1), PerPage: perPage}
	switch {
	case p.PerPage <= 0:
		p.PerPage = DefaultPerPage
	case p.PerPage > MaxPerPage:
		p.PerPage = MaxPerPage
	}
	return p
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// Meta is serialized next to offset listings.
type Meta struct {
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	Page    int   `json:"current_page"`
	PerPage int   `json:"per_page"`
}

func (p Page) MetaFor(total int64) Meta {
	meta := Meta{Total: total, Page: p.Number, PerPage: p.PerPage}
	if total > 0 && p.PerPage > 0 {
		per := int64(p.PerPage)
		meta.Pages = int((total + per - 1) / per)
	}
	return meta
}
