package slug

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	slugs  []string
	err    error
	prefix string
	calls  int
}

func (s *stubLister) ListSlugsWithPrefix(_ context.Context, prefix string) ([]string, error) {
	s.calls++
	s.prefix = prefix
	if s.err != nil {
		return nil, s.err
	}
	var out []string
	for _, slug := range s.slugs {
		if strings.HasPrefix(slug, prefix) {
			out = append(out, slug)
		}
	}
	return out, nil
}

func TestBase(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"punctuation stripped", "Sunshine Dental Care!", "sunshine-dental-care"},
		{"whitespace runs collapse", "Bright   Smiles\tClinic", "bright-smiles-clinic"},
		{"hyphen runs collapse", "Dr. Ali -- Khan", "dr-ali-khan"},
		{"edges trimmed", "  -Acme- ", "acme"},
		{"digits kept", "Clinic 24/7", "clinic-247"},
		{"non latin dropped", "Café Dentaire", "caf-dentaire"},
		{"vertical tab separates", "Sun\vshine", "sun-shine"},
		{"line separator separates", "Sun\u2028shine", "sun-shine"},
		{"paragraph separator separates", "Sun\u2029shine", "sun-shine"},
		{"byte order mark separates", "Sun\ufeffshine", "sun-shine"},
		{"no-break space separates", "Sun\u00a0shine", "sun-shine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Base(tt.in))
		})
	}
}

func TestBase_Idempotent(t *testing.T) {
	first := Base("Sunshine Dental Care!")
	assert.Equal(t, first, Base("Sunshine Dental Care!"))
	assert.Equal(t, first, Base(first))
}

func TestBase_Truncates(t *testing.T) {
	got := Base(strings.Repeat("a", 120))
	assert.Len(t, got, MaxLength)
}

func TestBase_Fallback(t *testing.T) {
	assert.Regexp(t, `^practice-[0-9a-z]+$`, Base("!!!"))
	assert.Regexp(t, `^practice-[0-9a-z]+$`, Base("   "))
	assert.Regexp(t, `^practice-[0-9a-z]+$`, Base("عيادة"))

	now := time.UnixMilli(1700000000000)
	assert.Equal(t, "practice-loyw3v28", baseAt("", now))
}

func TestNext(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{"none", nil, "acme"},
		{"exact only", []string{"acme"}, "acme-1"},
		{"sequence", []string{"acme-2", "acme-1", "acme"}, "acme-3"},
		{"order does not matter", []string{"acme", "acme-1", "acme-2"}, "acme-3"},
		{"gap uses highest", []string{"acme", "acme-7"}, "acme-8"},
		{"suffix without exact", []string{"acme-4"}, "acme-5"},
		{"prefix only ignored", []string{"acme-dental", "acmeco"}, "acme"},
		{"mixed suffix ignored", []string{"acme", "acme-2b"}, "acme-1"},
		{"leading zeros", []string{"acme", "acme-007"}, "acme-8"},
		{"suffix beyond int64", []string{"acme", "acme-99999999999999999999"}, "acme-100000000000000000000"},
		{"longest suffix wins", []string{"acme-99999999999999999999", "acme-100000000000000000001"}, "acme-100000000000000000002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Next("acme", tt.existing))
		})
	}
}

func TestResolver_Unique(t *testing.T) {
	clinics := &stubLister{slugs: []string{"acme", "acme-1", "acme-2", "bright-smiles-group"}}
	dentists := &stubLister{slugs: []string{"acme"}}
	r := NewResolver(clinics, dentists)

	got, err := r.Unique(context.Background(), Clinics, "Acme")
	require.NoError(t, err)
	assert.Equal(t, "acme-3", got)
	assert.Equal(t, "acme", clinics.prefix)

	got, err = r.Unique(context.Background(), Clinics, "Bright Smiles")
	require.NoError(t, err)
	assert.Equal(t, "bright-smiles", got)

	got, err = r.Unique(context.Background(), Dentists, "ACME")
	require.NoError(t, err)
	assert.Equal(t, "acme-1", got)
}

func TestResolver_NoConflictPassthrough(t *testing.T) {
	r := NewResolver(&stubLister{}, &stubLister{})

	got, err := r.Unique(context.Background(), Clinics, "Acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", got)
}

func TestResolver_Errors(t *testing.T) {
	boom := errors.New("db down")
	r := NewResolver(&stubLister{err: boom}, &stubLister{})

	_, err := r.Unique(context.Background(), Clinics, "Acme")
	assert.ErrorIs(t, err, boom)

	_, err = r.Unique(context.Background(), Namespace("patients"), "Acme")
	assert.ErrorContains(t, err, "unknown slug namespace")
}
