package vcf

import (
	"path/filepath"
	"testing"
)

func TestWriter_RoundTrip(t *testing.T) {
	records := []string{
		"1\t100\t.\tA\tT\t.\tPASS\tTLOD=10.5\tGT:AF\t0/0:0.0\t0/1:0.35",
		"2\t200\trs123\tC\tG\t50\tPASS\t.\tGT:AF\t0/0:0.0\t1/1:0.99",
	}
	src := writeVCF(t, "src.vcf", testHeader, records...)

	parser, err := NewParser(src)
	if err != nil {
		t.Fatalf("Failed to create parser: %v", err)
	}
	defer parser.Close()

	out := filepath.Join(t.TempDir(), "out.vcf")
	writer, err := NewWriter(out, parser.Header())
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}

	for {
		v, err := parser.Next()
		if err != nil {
			t.Fatalf("Error reading variant: %v", err)
		}
		if v == nil {
			break
		}
		if err := writer.Write(v); err != nil {
			t.Fatalf("Error writing variant: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Error closing writer: %v", err)
	}

	// Output must be re-readable with identical records
	reparsed, err := NewParser(out)
	if err != nil {
		t.Fatalf("Failed to re-parse written VCF: %v", err)
	}
	defer reparsed.Close()

	if len(reparsed.Header()) != len(parser.Header()) {
		t.Errorf("Header length changed: got %d, want %d",
			len(reparsed.Header()), len(parser.Header()))
	}

	for i := 0; ; i++ {
		v, err := reparsed.Next()
		if err != nil {
			t.Fatalf("Error re-reading variant: %v", err)
		}
		if v == nil {
			if i != len(records) {
				t.Errorf("Re-parsed %d records, want %d", i, len(records))
			}
			break
		}
		if v.Raw != records[i] {
			t.Errorf("Record %d changed:\ngot  %q\nwant %q", i, v.Raw, records[i])
		}
	}
}

func TestWriter_HeaderOnly(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.vcf")
	header := []string{"##fileformat=VCFv4.2", "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO"}

	writer, err := NewWriter(out, header)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Error closing writer: %v", err)
	}

	parser, err := NewParser(out)
	if err != nil {
		t.Fatalf("Header-only VCF should be parseable: %v", err)
	}
	defer parser.Close()

	v, err := parser.Next()
	if err != nil {
		t.Fatalf("Error reading from header-only VCF: %v", err)
	}
	if v != nil {
		t.Errorf("Expected no variants, got %+v", v)
	}
}
