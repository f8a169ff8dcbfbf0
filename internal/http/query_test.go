package httpserver

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/ai-tool-finder/internal/apperr"
	"github.com/Clark-Hu/ai-tool-finder/internal/discovery"
	"github.com/Clark-Hu/ai-tool-finder/internal/domain"
)

func TestBuildDiscoverQuery(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    discovery.Query
		wantErr bool
	}{
		{
			name: "defaults",
			raw:  "",
			want: discovery.Query{Page: 1, Limit: 20},
		},
		{
			name: "q alias and all category",
			raw:  "q=+chatgpt+&category=All",
			want: discovery.Query{Text: "chatgpt", Page: 1, Limit: 20},
		},
		{
			name: "repeated pricing values",
			raw:  "pricing=Free&pricing=Trial,freemium",
			want: discovery.Query{
				Page:   1,
				Limit:  20,
				Filter: discovery.Filter{Pricing: []domain.PricingType{domain.PricingFree, domain.PricingTrial, domain.PricingFreemium}},
			},
		},
		{
			name: "category with slash",
			raw:  "category=" + url.QueryEscape("Website/App Builder") + "&sort=newest",
			want: discovery.Query{
				Page:   1,
				Limit:  20,
				Sort:   discovery.SortNewest,
				Filter: discovery.Filter{Category: domain.CategorySiteBuilder},
			},
		},
		{name: "negative page", raw: "page=-1", wantErr: true},
		{name: "zero limit", raw: "limit=0", wantErr: true},
		{name: "unknown sort", raw: "sort=name", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.raw)
			require.NoError(t, err)

			got, err := buildDiscoverQuery(values, 20, 100)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", " ,c,"}))
	assert.Nil(t, splitList(nil))
}

func FuzzBuildDiscoverQuery(f *testing.F) {
	seeds := []string{
		"query=ai+video+maker&category=Video&pricing=Free,Paid&sort=popular&page=2&limit=10",
		"page=abc",
		"limit=100000",
		"pricing=,,,",
		"",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		values, err := url.ParseQuery(raw)
		if err != nil {
			return
		}
		q, err := buildDiscoverQuery(values, 20, 100)
		if err != nil {
			if !assert.ErrorIs(t, err, apperr.ErrValidation) {
				t.FailNow()
			}
			return
		}
		if q.Page < 1 || q.Limit < 1 || q.Limit > 100 {
			t.Fatalf("out of range query: %+v", q)
		}
	})
}
