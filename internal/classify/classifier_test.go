package classify

import (
	"context"
	"errors"
	"testing"

	"cert-verification/internal/model"
	pkgerrors "cert-verification/pkg/errors"
)

type record struct {
	name, score, identifier string
}

type fakeLookup struct {
	records []record
	calls   []string
	err     error
}

func (f *fakeLookup) FindExact(ctx context.Context, name, score, identifier string) (bool, error) {
	f.calls = append(f.calls, "exact")
	if f.err != nil {
		return false, f.err
	}
	for _, r := range f.records {
		if r.name == name && r.score == score && r.identifier == identifier {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLookup) FindByIdentifier(ctx context.Context, identifier string) (bool, error) {
	f.calls = append(f.calls, "partial")
	if f.err != nil {
		return false, f.err
	}
	for _, r := range f.records {
		if r.identifier == identifier {
			return true, nil
		}
	}
	return false, nil
}

func ptr(s string) *string { return &s }

func fields(name, score, identifier *string) model.ExtractedFields {
	return model.ExtractedFields{Name: name, Score: score, Identifier: identifier}
}

func TestClassifyTiers(t *testing.T) {
	issued := []record{{name: "Jane Doe", score: "8.5", identifier: "PRN100"}}

	tests := []struct {
		name   string
		fields model.ExtractedFields
		want   model.CertStatus
	}{
		{
			name:   "exact match is valid",
			fields: fields(ptr("Jane Doe"), ptr("8.5"), ptr("PRN100")),
			want:   model.CertStatusValid,
		},
		{
			name:   "known identifier with wrong name is suspicious",
			fields: fields(ptr("John Smith"), ptr("8.5"), ptr("PRN100")),
			want:   model.CertStatusSuspicious,
		},
		{
			name:   "known identifier with wrong score is suspicious",
			fields: fields(ptr("Jane Doe"), ptr("9.9"), ptr("PRN100")),
			want:   model.CertStatusSuspicious,
		},
		{
			name:   "unknown identifier is invalid",
			fields: fields(ptr("Jane Doe"), ptr("8.5"), ptr("PRN999")),
			want:   model.CertStatusInvalid,
		},
		{
			name:   "nil identifier is invalid",
			fields: fields(ptr("Jane Doe"), ptr("8.5"), nil),
			want:   model.CertStatusInvalid,
		},
		{
			name:   "all nil fields are invalid",
			fields: fields(nil, nil, nil),
			want:   model.CertStatusInvalid,
		},
		{
			name:   "nil name skips exact tier but partial still applies",
			fields: fields(nil, ptr("8.5"), ptr("PRN100")),
			want:   model.CertStatusSuspicious,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &fakeLookup{records: issued}
			got, err := Classify(context.Background(), tt.fields, lookup)
			if err != nil {
				t.Fatalf("Classify returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify = %q, want %q", got, tt.want)
			}
		})
	}
}

// A nil identifier must never reach the lookup: naive equality on an
// absent field could otherwise produce a false suspicious hit.
func TestClassifyNilFieldsQueryNothing(t *testing.T) {
	lookup := &fakeLookup{records: []record{{identifier: "PRN100"}}}

	got, err := Classify(context.Background(), fields(nil, nil, nil), lookup)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if got != model.CertStatusInvalid {
		t.Errorf("Classify = %q, want invalid", got)
	}
	if len(lookup.calls) != 0 {
		t.Errorf("lookup calls = %v, want none", lookup.calls)
	}
}

func TestClassifyExactBeforePartial(t *testing.T) {
	lookup := &fakeLookup{records: []record{{name: "Jane Doe", score: "8.5", identifier: "PRN100"}}}

	got, err := Classify(context.Background(), fields(ptr("Jane Doe"), ptr("8.5"), ptr("PRN100")), lookup)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if got != model.CertStatusValid {
		t.Errorf("Classify = %q, want valid", got)
	}
	if len(lookup.calls) != 1 || lookup.calls[0] != "exact" {
		t.Errorf("lookup calls = %v, want exact query only", lookup.calls)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	lookup := &fakeLookup{records: []record{{name: "Jane Doe", score: "8.5", identifier: "PRN100"}}}
	f := fields(ptr("Other"), ptr("1.0"), ptr("PRN100"))

	first, err := Classify(context.Background(), f, lookup)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Classify(context.Background(), f, lookup)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("classification changed between calls: %q then %q", first, second)
	}
}

func TestClassifyLookupFailure(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("connection refused")}

	_, err := Classify(context.Background(), fields(ptr("A"), ptr("1"), ptr("X")), lookup)
	if !errors.Is(err, pkgerrors.ErrLookup) {
		t.Errorf("err = %v, want ErrLookup", err)
	}
}
