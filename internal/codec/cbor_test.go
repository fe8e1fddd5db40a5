package codec

import (
	"bytes"
	"testing"
)

type sample struct {
	Name  string            `cbor:"1,keyasint"`
	Count uint32            `cbor:"2,keyasint,omitempty"`
	Tags  map[string]string `cbor:"3,keyasint,omitempty"`
}

func TestMarshalDeterministic(t *testing.T) {
	v := sample{
		Name:  "web",
		Count: 3,
		Tags:  map[string]string{"zone": "a", "env": "prod", "tier": "edge"},
	}
	first, err := Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 16; i++ {
		again, err := Marshal(v)
		if err != nil {
			t.Fatalf("marshal %d: %v", i, err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("non-deterministic encoding on iteration %d", i)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	in := sample{Name: "db", Count: 1, Tags: map[string]string{"env": "dev"}}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out sample
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Name != in.Name || out.Count != in.Count || out.Tags["env"] != "dev" {
		t.Fatalf("round-trip mismatch: %+v", out)
	}
}

func TestStreamEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	if err := enc.Encode(sample{Name: "one"}); err != nil {
		t.Fatalf("encode one: %v", err)
	}
	if err := enc.Encode(sample{Name: "two"}); err != nil {
		t.Fatalf("encode two: %v", err)
	}

	dec := NewDecoder(&buf)
	var a, b sample
	if err := dec.Decode(&a); err != nil {
		t.Fatalf("decode one: %v", err)
	}
	if err := dec.Decode(&b); err != nil {
		t.Fatalf("decode two: %v", err)
	}
	if a.Name != "one" || b.Name != "two" {
		t.Fatalf("stream order mismatch: %q %q", a.Name, b.Name)
	}
}

func TestUnknownFieldsIgnored(t *testing.T) {
	type wide struct {
		Name  string `cbor:"1,keyasint"`
		Extra string `cbor:"9,keyasint"`
	}
	data, err := Marshal(wide{Name: "svc", Extra: "future"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	type narrow struct {
		Name string `cbor:"1,keyasint"`
	}
	var out narrow
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal with unknown field: %v", err)
	}
	if out.Name != "svc" {
		t.Fatalf("name mismatch: %q", out.Name)
	}
}
