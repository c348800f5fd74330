package domain_test

import (
	"reflect"
	"testing"

	"github.com/urbanlens/urbanlens/internal/core/domain"
)

func TestGeoRequest_Normalize(t *testing.T) {
	tests := []struct {
		name      string
		req       domain.GeoRequest
		wantYear  int
		wantKinds []domain.DatasetKind
		wantErr   bool
	}{
		{
			name:      "defaults fill in",
			req:       domain.GeoRequest{Place: "Denver"},
			wantYear:  domain.DefaultYear,
			wantKinds: domain.AllKinds(),
		},
		{
			name: "duplicates collapse",
			req: domain.GeoRequest{
				Place: "Denver",
				Year:  2019,
				Kinds: []domain.DatasetKind{"ndvi", "NDVI", " ndvi "},
			},
			wantYear:  2019,
			wantKinds: []domain.DatasetKind{domain.KindNDVI},
		},
		{
			name: "unknown kind rejected",
			req: domain.GeoRequest{
				Place: "Denver",
				Kinds: []domain.DatasetKind{"elevation"},
			},
			wantErr: true,
		},
		{
			name:    "empty place rejected",
			req:     domain.GeoRequest{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Normalize()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.req.Year != tt.wantYear {
				t.Errorf("year = %d, want %d", tt.req.Year, tt.wantYear)
			}
			if !reflect.DeepEqual(tt.req.Kinds, tt.wantKinds) {
				t.Errorf("kinds = %v, want %v", tt.req.Kinds, tt.wantKinds)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	if k, err := domain.ParseKind(" Land_Cover "); err != nil || k != domain.KindLandCover {
		t.Errorf("ParseKind = %v, %v", k, err)
	}
	if _, err := domain.ParseKind("weather"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestDatasetKind_Categorical(t *testing.T) {
	for _, k := range domain.AllKinds() {
		got := k.Categorical()
		want := k == domain.KindLandCover
		if got != want {
			t.Errorf("%s.Categorical() = %v, want %v", k, got, want)
		}
	}
}
