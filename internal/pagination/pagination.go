// Package pagination keeps a listing's page selection consistent with what the
// server last reported.
package pagination

// State is the client-owned page selection of one listing.
type State struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

// NewState returns the state of a listing that has not been fetched yet.
func NewState() State {
	return State{CurrentPage: 1, TotalPages: 1}
}

// Select moves to page. Out of range values are kept as requested; the next
// Reconcile pulls them back once the server reports the real page count.
func (s State) Select(page int) State {
	if page < 1 {
		page = 1
	}
	s.CurrentPage = page
	return s
}

// Reconcile commits the last page reported by a fetch of s.CurrentPage.
//
// When the listing shrank while the user was on its last page, or more
// generally whenever the current page no longer exists, the current page is
// clamped to the new last page and refetch is true: the rows just received
// belong to a page that is no longer displayed.
//
// An empty listing (lastPage <= 0) counts as a single empty page.
func (s State) Reconcile(lastPage int) (next State, refetch bool) {
	if lastPage < 1 {
		lastPage = 1
	}

	next = State{CurrentPage: s.CurrentPage, TotalPages: lastPage}
	if next.CurrentPage < 1 {
		next.CurrentPage = 1
		refetch = true
	}

	shrankOnLastPage := lastPage < s.TotalPages && s.CurrentPage == s.TotalPages
	if shrankOnLastPage || next.CurrentPage > lastPage {
		next.CurrentPage = lastPage
		refetch = true
	}

	return next, refetch
}

// Valid reports whether the current page lies within [1, TotalPages].
func (s State) Valid() bool {
	return s.TotalPages >= 1 && s.CurrentPage >= 1 && s.CurrentPage <= s.TotalPages
}

// HasPrev reports whether a page precedes the current one.
func (s State) HasPrev() bool { return s.CurrentPage > 1 }

// HasNext reports whether a page follows the current one.
func (s State) HasNext() bool { return s.CurrentPage < s.TotalPages }
