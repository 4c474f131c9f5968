package score

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/neovex/internal/output"
	"github.com/inodb/neovex/internal/vcf"
)

const vcfHeader = `##fileformat=VCFv4.2
##FILTER=<ID=PASS,Description="All filters passed">
##INFO=<ID=CSQ,Number=.,Type=String,Description="Consequence annotations from Ensembl VEP. Format: Allele|Consequence|IMPACT|SYMBOL|Gene">
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##FORMAT=<ID=AF,Number=A,Type=Float,Description="Allele fractions">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	NORMAL	TUMOR`

// record builds one VCF data line with AF in both sample columns.
func record(chrom string, pos int, ref, alt, filter, csqRaw, tumorAF string) string {
	info := "."
	if csqRaw != "" {
		info = "CSQ=" + csqRaw
	}
	return strings.Join([]string{
		chrom, strconv.Itoa(pos), ".", ref, alt, ".", filter, info,
		"GT:AF", "0/0:0.01", "0/1:" + tumorAF,
	}, "\t")
}

func writeVCF(t *testing.T, records ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "input.vcf")
	content := vcfHeader + "\n"
	if len(records) > 0 {
		content += strings.Join(records, "\n") + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func buildIndex(t *testing.T, tumor TumorSample, records ...string) Index {
	t.Helper()

	p, err := vcf.NewParser(writeVCF(t, records...))
	require.NoError(t, err)
	defer p.Close()

	idx, err := BuildIndex(p, tumor)
	require.NoError(t, err)
	return idx
}

func TestBuildIndex(t *testing.T) {
	idx := buildIndex(t, DefaultTumorSample(),
		record("12", 25245351, "C", "A", "PASS", "A|missense_variant|MODERATE|KRAS|ENSG00000133703.13", "0.433"),
		record("17", 7675088, "C", "T", "PASS", "T|stop_gained&NMD_transcript_variant|HIGH|TP53|ENSG00000141510.18", "0.25"),
	)
	require.Len(t, idx, 2)

	kras := idx[output.VariantKey{Chrom: "12", Pos: 25245351, Ref: "C", Alt: "A"}]
	assert.InDelta(t, 0.433, kras.VAF, 1e-9)
	assert.False(t, kras.NMD)

	tp53 := idx[output.VariantKey{Chrom: "17", Pos: 7675088, Ref: "C", Alt: "T"}]
	assert.InDelta(t, 0.25, tp53.VAF, 1e-9)
	assert.True(t, tp53.NMD)
}

func TestBuildIndex_SkipsNonPassAndNoAlt(t *testing.T) {
	idx := buildIndex(t, DefaultTumorSample(),
		record("12", 100, "C", "A", "weak_evidence", "A|missense_variant|MODERATE|KRAS|ENSG00000133703.13", "0.4"),
		record("12", 200, "C", ".", "PASS", "", "0.4"),
		record("12", 300, "C", "A", "PASS", "A|missense_variant|MODERATE|KRAS|ENSG00000133703.13", "0.4"),
	)
	require.Len(t, idx, 1)
	_, ok := idx[output.VariantKey{Chrom: "12", Pos: 300, Ref: "C", Alt: "A"}]
	assert.True(t, ok)
}

func TestBuildIndex_FirstAltKeyed(t *testing.T) {
	// Multi-allelic sites key on the first alternate, matching the
	// prediction table.
	idx := buildIndex(t, DefaultTumorSample(),
		record("12", 100, "C", "A,G", "PASS", "A|missense_variant|MODERATE|KRAS|ENSG00000133703.13", "0.3,0.1"),
	)
	require.Len(t, idx, 1)
	facts, ok := idx[output.VariantKey{Chrom: "12", Pos: 100, Ref: "C", Alt: "A"}]
	require.True(t, ok)
	assert.InDelta(t, 0.3, facts.VAF, 1e-9)
}

func TestBuildIndex_TumorByName(t *testing.T) {
	idx := buildIndex(t, TumorSample{Name: "NORMAL"},
		record("12", 100, "C", "A", "PASS", "A|missense_variant|MODERATE|KRAS|ENSG00000133703.13", "0.433"),
	)
	facts := idx[output.VariantKey{Chrom: "12", Pos: 100, Ref: "C", Alt: "A"}]
	// Resolved to the NORMAL column on purpose: its AF is 0.01.
	assert.InDelta(t, 0.01, facts.VAF, 1e-9)
}

func TestBuildIndex_UnknownSampleName(t *testing.T) {
	p, err := vcf.NewParser(writeVCF(t,
		record("12", 100, "C", "A", "PASS", "", "0.4"),
	))
	require.NoError(t, err)
	defer p.Close()

	_, err = BuildIndex(p, TumorSample{Name: "TUMOUR_X"})
	assert.ErrorContains(t, err, "TUMOUR_X")
}

func TestVAF_MissingField(t *testing.T) {
	line := strings.Join([]string{
		"12", "100", ".", "C", "A", ".", "PASS", ".", "GT", "0/0", "0/1",
	}, "\t")
	p, err := vcf.NewParser(writeVCF(t, line))
	require.NoError(t, err)
	defer p.Close()

	v, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, math.IsNaN(VAF(v, 1)))
}
