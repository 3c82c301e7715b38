// Package family carries one family's data through the coupling pipeline.
// Each stage produces a new record and never modifies the one it was given:
//
//	Raw -> Normalized -> Recoded -> Result
//
// It also holds the table layouts, the loaders that build a Raw from a
// tab-delimited table or a VCF, and the writers for results and summaries.
package family
