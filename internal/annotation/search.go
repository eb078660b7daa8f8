package annotation

import (
	"fmt"
	"regexp"
)

// Search returns the rows whose text or speaker matches pattern.
func (d *Document) Search(pattern string, ignoreCase bool) ([]int, error) {
	if ignoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	var rows []int
	for i, da := range d.acts {
		if re.MatchString(da.Text) || re.MatchString(da.Speaker) {
			rows = append(rows, i)
		}
	}
	return rows, nil
}
