package detect

import "testing"

func TestDetectorsFromSpecs(t *testing.T) {
	ds, err := DetectorsFromSpecs([]Spec{
		{Category: PII},
		{Category: PCI, Kind: KindSidecar, URL: "http://localhost:8001"},
		{Category: PHI, Kind: KindONNX, ModelDir: "/models/phi"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ds[PII].(RegexDetector); !ok {
		t.Fatalf("PII: got %T", ds[PII])
	}
	if _, ok := ds[PCI].(*SidecarDetector); !ok {
		t.Fatalf("PCI: got %T", ds[PCI])
	}
	if _, ok := ds[PHI].(*ONNXNERDetector); !ok {
		t.Fatalf("PHI: got %T", ds[PHI])
	}
}

func TestDetectorsFromSpecsErrors(t *testing.T) {
	cases := [][]Spec{
		{{Category: PII}, {Category: PII}},
		{{Category: PCI, Kind: KindSidecar}},
		{{Category: PHI, Kind: KindONNX}},
		{{Category: PII, Kind: "magic"}},
	}
	for i, specs := range cases {
		if _, err := DetectorsFromSpecs(specs); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
