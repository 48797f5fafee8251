package domain

// SearchParams is the raw search input. Nil fields take the defaults
// applied by search.Normalize: empty title, page 1.
type SearchParams struct {
	Title *string
	Page  *int
}

func NewSearchParams(title string, page int) SearchParams {
	return SearchParams{Title: &title, Page: &page}
}

type NormalizedQuery struct {
	Title string `json:"title"`
	Page  int    `json:"page"`
}

// Params converts the query back into raw input, used when re-issuing it.
func (q NormalizedQuery) Params() SearchParams {
	return NewSearchParams(q.Title, q.Page)
}

func (q NormalizedQuery) WithPage(page int) NormalizedQuery {
	q.Page = page
	return q
}

// SearchState is the observable state of the search orchestrator.
type SearchState struct {
	Loading    bool            `json:"loading"`
	Error      string          `json:"error,omitempty"`
	LastQuery  NormalizedQuery `json:"lastQuery"`
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
	Total      int             `json:"total"`
	Results    []Movie         `json:"results"`
	Current    *Movie          `json:"current,omitempty"`
}

func (s SearchState) Clone() SearchState {
	cloned := s
	if s.Results != nil {
		cloned.Results = append([]Movie(nil), s.Results...)
	}
	if s.Current != nil {
		current := *s.Current
		cloned.Current = &current
	}
	return cloned
}
