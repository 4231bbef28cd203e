package retrieval

import "github.com/cloo-solutions/consultbot/internal/domain"

// SpecialtyClass is the relation between an item's specialty tags and the
// user's declared specialty.
type SpecialtyClass int

const (
	// SpecialtyMatch: the item is tagged with the user's specialty.
	SpecialtyMatch SpecialtyClass = iota
	// SpecialtyUntagged: the item carries no specialty tag.
	SpecialtyUntagged
	// SpecialtyOther: the item is tagged only with other specialties.
	SpecialtyOther
)

// ClassifySpecialty places item relative to specialty.
func ClassifySpecialty(item *domain.KnowledgeItem, specialty *domain.UserSpecialty) SpecialtyClass {
	tags := item.Tags.Specialties
	switch {
	case len(tags) == 0:
		return SpecialtyUntagged
	case specialty.MatchesAny(tags):
		return SpecialtyMatch
	default:
		return SpecialtyOther
	}
}

// FilterBySpecialty reorders sorted candidates so items for the user's
// specialty come first, then untagged items, then other-specialty items.
// With relevant set, other-specialty items are dropped. Order within each
// class is kept. Without a specialty the input is returned unchanged.
func FilterBySpecialty(items []domain.ScoredItem, specialty *domain.UserSpecialty, relevant bool) []domain.ScoredItem {
	if specialty == nil || specialty.Code == "" {
		return items
	}

	var matching, untagged, other []domain.ScoredItem
	for _, it := range items {
		switch ClassifySpecialty(it.Item, specialty) {
		case SpecialtyMatch:
			matching = append(matching, it)
		case SpecialtyUntagged:
			untagged = append(untagged, it)
		default:
			other = append(other, it)
		}
	}

	out := make([]domain.ScoredItem, 0, len(items))
	out = append(out, matching...)
	out = append(out, untagged...)
	if !relevant {
		out = append(out, other...)
	}
	return out
}
