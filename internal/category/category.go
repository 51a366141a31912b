// Package category maps category references to display names.
package category

import "eventboard/internal/model"

// ResolveNames returns one display name per id, in order. Ids missing from
// the catalog produce an empty string so positions line up with ids.
func ResolveNames(ids model.CategoryIDs, catalog []model.Category) []string {
	if len(ids) == 0 {
		return []string{}
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		for _, c := range catalog {
			if c.ID == id {
				names[i] = c.Name
				break
			}
		}
	}
	return names
}
