package pagination

// Button is one page control.
type Button struct {
	Page    int
	Current bool
}

// Buttons returns the page controls to render for s.
//
// width <= 0 renders every page from 1 to TotalPages. Otherwise at most width
// consecutive pages are returned, centred on the current page where possible.
func (s State) Buttons(width int) []Button {
	total := s.TotalPages
	if total < 1 {
		total = 1
	}

	first, last := 1, total
	if width > 0 && width < total {
		first = s.CurrentPage - width/2
		if first < 1 {
			first = 1
		}
		last = first + width - 1
		if last > total {
			last = total
			first = last - width + 1
		}
	}

	buttons := make([]Button, 0, last-first+1)
	for page := first; page <= last; page++ {
		buttons = append(buttons, Button{Page: page, Current: page == s.CurrentPage})
	}
	return buttons
}
