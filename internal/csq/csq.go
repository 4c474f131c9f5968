// Package csq parses VEP consequence (CSQ) annotations from VCF INFO fields.
//
// A CSQ value holds one entry per affected transcript, comma-separated, with
// pipe-delimited fields inside each entry:
//
//	Index 0: Allele
//	Index 1: Consequence      (e.g. missense_variant, may mention NMD)
//	Index 2: IMPACT           (HIGH, MODERATE, LOW, MODIFIER)
//	Index 3: SYMBOL           (gene symbol)
//	Index 4: Gene             (versioned Ensembl ID, e.g. ENSG00000133703.13)
//
// Trailing fields beyond index 4 are permitted and ignored.
package csq

import "strings"

// Key is the INFO key under which VEP stores consequence annotations.
const Key = "CSQ"

// Impact levels assigned by VEP.
const (
	ImpactHigh     = "HIGH"
	ImpactModerate = "MODERATE"
	ImpactLow      = "LOW"
	ImpactModifier = "MODIFIER"
)

// minFields is the number of pipe-delimited fields an entry must carry to be
// parsed. Shorter entries are dropped, not errored.
const minFields = 5

// Transcript is one predicted consequence of one variant on one transcript.
type Transcript struct {
	Allele         string
	Consequence    string
	Impact         string
	GeneSymbol     string
	GeneID         string // versioned Ensembl ID
	GeneIDStripped string // GeneID without the ".<version>" suffix
}

// Parse decodes a raw CSQ annotation string into transcript records.
// An empty string yields no records.
func Parse(raw string) []Transcript {
	if raw == "" {
		return nil
	}

	var transcripts []Transcript
	for _, entry := range strings.Split(raw, ",") {
		fields := strings.Split(entry, "|")
		if len(fields) < minFields {
			continue
		}
		transcripts = append(transcripts, Transcript{
			Allele:         fields[0],
			Consequence:    fields[1],
			Impact:         fields[2],
			GeneSymbol:     fields[3],
			GeneID:         fields[4],
			GeneIDStripped: StripVersion(fields[4]),
		})
	}
	return transcripts
}

// StripVersion removes the ".<version>" suffix from an Ensembl identifier.
// Identifiers without a dot are returned unchanged.
func StripVersion(id string) string {
	if i := strings.IndexByte(id, '.'); i >= 0 {
		return id[:i]
	}
	return id
}

// HasNMD reports whether any transcript's consequence mentions
// nonsense-mediated decay (an "NMD" substring, as in nmd_transcript_variant
// spelled by VEP as NMD_transcript_variant).
func HasNMD(raw string) bool {
	for _, t := range Parse(raw) {
		if strings.Contains(t.Consequence, "NMD") {
			return true
		}
	}
	return false
}

// FirstGeneSymbol returns the gene symbol (index 3) of the first transcript
// in a raw CSQ string, or "." when the annotation is absent or too short.
//
// This is a single split on "|" that never partitions by comma first, so on
// multi-transcript strings it always reads the first transcript. Use Parse
// when all transcripts matter.
func FirstGeneSymbol(raw string) string {
	fields := strings.Split(raw, "|")
	if len(fields) <= 3 {
		return "."
	}
	return fields[3]
}

// FirstGeneID returns the Ensembl gene ID (index 4) of the first transcript
// in a raw CSQ string, or "." when the annotation is absent or too short.
// With stripVersion the ID is cut at its first dot.
//
// Same single-split behavior as FirstGeneSymbol. When the first transcript
// has exactly five fields, the unstripped ID carries the comma and the start
// of the next transcript; stripping a versioned ID cuts that off too.
func FirstGeneID(raw string, stripVersion bool) string {
	fields := strings.Split(raw, "|")
	if len(fields) <= 4 {
		return "."
	}
	if stripVersion {
		return StripVersion(fields[4])
	}
	return fields[4]
}
