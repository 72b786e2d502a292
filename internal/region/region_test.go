package region

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad(t *testing.T) {
	d, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	regions := d.Regions()
	if len(regions) != 17 {
		t.Errorf("len(Regions()) = %d, want 17", len(regions))
	}
	if regions[0] != "서울특별시" {
		t.Errorf("first region = %q, want 서울특별시", regions[0])
	}
}

func TestContains(t *testing.T) {
	d := MustLoad()

	tests := []struct {
		region, city string
		want         bool
	}{
		{"서울특별시", "서울특별시", true},
		{"서울특별시", "강남구", true},
		{"경기도", "수원시", true},
		{"경기도", "경기도", false},
		{"경기도", "강남구", false},
		{"없는도", "수원시", false},
	}
	for _, tt := range tests {
		t.Run(tt.region+"/"+tt.city, func(t *testing.T) {
			if got := d.Contains(tt.region, tt.city); got != tt.want {
				t.Errorf("Contains(%q, %q) = %v, want %v", tt.region, tt.city, got, tt.want)
			}
		})
	}
}

func TestCities(t *testing.T) {
	d := MustLoad()

	got, ok := d.Cities("제주특별자치도")
	if !ok {
		t.Fatal("Cities(제주특별자치도) not found")
	}
	if diff := cmp.Diff([]string{"서귀포시", "제주시"}, got); diff != "" {
		t.Errorf("Cities() mismatch (-want +got):\n%s", diff)
	}

	// callers get a copy
	got[0] = "changed"
	again, _ := d.Cities("제주특별자치도")
	if again[0] != "서귀포시" {
		t.Error("Cities() leaked internal slice")
	}

	if _, ok := d.Cities("없는도"); ok {
		t.Error("Cities() found an unknown region")
	}
}

func TestHasCity(t *testing.T) {
	d := MustLoad()
	if !d.HasCity("세종특별자치시") {
		t.Error("HasCity(세종특별자치시) = false")
	}
	if d.HasCity("Springfield") {
		t.Error("HasCity(Springfield) = true")
	}
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := parse([]byte("regions:\n  - name: 경기도\n    citeis: [수원시]\n"))
	if err == nil {
		t.Fatal("parse() accepted a misspelled key")
	}
}

func TestParse_RejectsDuplicates(t *testing.T) {
	_, err := parse([]byte("regions:\n  - name: 경기도\n  - name: 경기도\n"))
	if err == nil {
		t.Fatal("parse() accepted a duplicate region")
	}
}
