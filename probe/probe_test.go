package probe

import (
	"context"
	"testing"
)

func TestProbeParsesFieldsAndNumFound(t *testing.T) {
	body := `{"response":{"numFound":1234,"start":0,"docs":[{"id":"a1","title":"x","_version_":1}]}}`

	get := func(ctx context.Context, url string) (string, error) {
		return body, nil
	}

	schema, err := Probe(context.Background(), get, "http://x/select", Options{})
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if schema.NumFound != 1234 {
		t.Fatalf("NumFound = %d, want 1234", schema.NumFound)
	}

	want := map[string]bool{"id": true, "title": true}
	if len(schema.Fields) != len(want) {
		t.Fatalf("Fields = %v, want keys of %v", schema.Fields, want)
	}
	for _, f := range schema.Fields {
		if !want[f] {
			t.Fatalf("unexpected field %q (underscore-prefixed fields must be dropped)", f)
		}
	}
}

func TestProbeShardWorkaroundKeepsMax(t *testing.T) {
	bodies := []string{
		`{"response":{"numFound":1000,"start":0,"docs":[{"id":"a"}]}}`,
		`{"response":{"numFound":998,"start":0,"docs":[{"id":"a"}]}}`,
		`{"response":{"numFound":1002,"start":0,"docs":[{"id":"a"}]}}`,
	}
	call := 0
	get := func(ctx context.Context, url string) (string, error) {
		b := bodies[call%len(bodies)]
		call++
		return b, nil
	}

	schema, err := Probe(context.Background(), get, "http://x/select", Options{WorkaroundShards: 0})
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	// single attempt, so just the first body's numFound.
	if schema.NumFound != 1000 {
		t.Fatalf("NumFound = %d, want 1000 on single attempt", schema.NumFound)
	}

	call = 0
	schema, err = Probe(context.Background(), get, "http://x/select", Options{WorkaroundShards: 1})
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if schema.NumFound != 1002 {
		t.Fatalf("NumFound = %d, want 1002 (the max across attempts)", schema.NumFound)
	}
	if call != 6 {
		t.Fatalf("expected 5*1+1=6 probe attempts, got %d", call)
	}
}

func TestProbeErrorsWhenSkipExceedsNumFound(t *testing.T) {
	get := func(ctx context.Context, url string) (string, error) {
		return `{"response":{"numFound":5,"start":0,"docs":[{"id":"a"}]}}`, nil
	}
	_, err := Probe(context.Background(), get, "http://x/select", Options{Skip: 5})
	if err == nil {
		t.Fatal("expected error when skip >= numFound")
	}
}
