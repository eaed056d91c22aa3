// Package fallback provides deterministic regex extractors used as the cheap
// tier of field extraction. Each extractor implements ports.Fallback and
// returns an empty domain.Extraction when nothing matched.
package fallback
