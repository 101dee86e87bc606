package db

import "testing"

func TestIndexBuilder_Simple(t *testing.T) {
	idx := NewIndex("spot-idx").
		Prefix("mapmapmap:spot:").
		Tag("category").
		Numeric("lat").
		MustBuild()

	if idx.Name != "spot-idx" {
		t.Errorf("name = %q, want spot-idx", idx.Name)
	}
	if len(idx.Fields) != 2 {
		t.Fatalf("fields count = %d, want 2", len(idx.Fields))
	}
	if idx.Fields[0].Name != "category" || idx.Fields[0].Type != IndexFieldTag {
		t.Errorf("field[0] = %+v, want category TAG", idx.Fields[0])
	}
	if idx.Fields[1].Name != "lat" || idx.Fields[1].Type != IndexFieldNumeric {
		t.Errorf("field[1] = %+v, want lat NUMERIC", idx.Fields[1])
	}
}

func TestIndexBuilder_VectorHNSW(t *testing.T) {
	idx := NewIndex("spot-idx").
		Prefix("mapmapmap:spot:").
		VectorHNSW("vector", 1536, DistanceCosine, 32, 400).
		MustBuild()

	f := idx.Fields[0]
	if f.Type != IndexFieldVector || f.VectorDim != 1536 {
		t.Fatalf("vector field = %+v", f)
	}
	if f.VectorAlgo != VectorHNSW || f.VectorDistance != DistanceCosine {
		t.Errorf("algo/distance = %q/%q", f.VectorAlgo, f.VectorDistance)
	}
}

func TestIndexDefinition_Validate(t *testing.T) {
	cases := []struct {
		name    string
		def     IndexDefinition
		wantErr bool
	}{
		{
			name:    "empty name",
			def:     IndexDefinition{Fields: []IndexField{{Name: "a", Type: IndexFieldTag}}},
			wantErr: true,
		},
		{
			name:    "no fields",
			def:     IndexDefinition{Name: "idx"},
			wantErr: true,
		},
		{
			name: "duplicate field",
			def: IndexDefinition{Name: "idx", Fields: []IndexField{
				{Name: "a", Type: IndexFieldTag},
				{Name: "a", Type: IndexFieldNumeric},
			}},
			wantErr: true,
		},
		{
			name: "vector without dim",
			def: IndexDefinition{Name: "idx", Fields: []IndexField{
				{Name: "v", Type: IndexFieldVector},
			}},
			wantErr: true,
		},
		{
			name: "valid",
			def: IndexDefinition{Name: "idx", Fields: []IndexField{
				{Name: "v", Type: IndexFieldVector, VectorDim: 8},
			}},
			wantErr: false,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.def.Validate()
			if (err != nil) != c.wantErr {
				t.Fatalf("Validate() err = %v, wantErr = %v", err, c.wantErr)
			}
		})
	}
}
