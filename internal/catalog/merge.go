package catalog

// merge combines the authoritative transactional record with the optional
// editorial record. Editorial values win only for presentation fields; every
// transactional field passes through untouched. A nil editorial record yields
// a merged product without enrichment.
func merge(record ProductRecord, editorial *EditorialRecord) MergedProduct {
	merged := MergedProduct{ProductRecord: record}
	if editorial == nil {
		return merged
	}
	merged.Enrichment = &Enrichment{
		Description:       editorial.Description,
		Badge:             editorial.Badge,
		BadgeColor:        editorial.BadgeColor,
		Features:          editorial.Features,
		Images:            editorial.Images,
		CareInstructions:  editorial.CareInstructions,
		ProductHighlights: editorial.ProductHighlights,
	}
	return merged
}
