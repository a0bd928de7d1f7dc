package storage

import (
	"testing"

	"inventory-sync/models"
)

func TestBuildTaxonomyOrdersModelsAndDetails(t *testing.T) {
	records := []models.TaxonomyRecord{
		{Kind: models.KindManufacturer, Name: "현대", Origin: models.Domestic, Value: "mk-1", Index: 1},
		{Kind: models.KindModel, Manufacturer: "현대", Name: "그랜저", Segment: "중대형", Value: "m-3", Index: 3},
		{Kind: models.KindModel, Manufacturer: "현대", Name: "아반떼", Segment: "준중형", Value: "m-1", Index: 1},
		{Kind: models.KindModel, Manufacturer: "현대", Name: "e-마이티", Segment: "화물/버스", Value: "m-2", Index: 2},
		{Kind: models.KindDetailModel, Manufacturer: "현대", Model: "그랜저", Name: "그랜저IG", Value: "d-2", Index: 2},
		{Kind: models.KindDetailModel, Manufacturer: "현대", Model: "그랜저", Name: "그랜저HG", Value: "d-1", Index: 1},
		{Kind: models.KindModel, Manufacturer: "없는회사", Name: "유령", Index: 1},
		{Kind: models.KindDetailModel, Manufacturer: "현대", Model: "없는모델", Name: "유령", Index: 1},
	}

	tax := BuildTaxonomy(records)
	hd := tax.Manufacturers["현대"]
	if hd == nil {
		t.Fatal("manufacturer not loaded")
	}

	want := []string{"아반떼", "마이티", "그랜저"}
	if len(hd.ModelOrder) != len(want) {
		t.Fatalf("model order: got %v, want %v", hd.ModelOrder, want)
	}
	for i := range want {
		if hd.ModelOrder[i] != want[i] {
			t.Errorf("model order[%d]: got %q, want %q", i, hd.ModelOrder[i], want[i])
		}
	}

	details := hd.Models["그랜저"].DetailModels
	if len(details) != 2 || details[0].Name != "그랜저HG" || details[1].Name != "그랜저IG" {
		t.Errorf("details should be sorted by index, got %+v", details)
	}
	if _, ok := tax.Manufacturers["없는회사"]; ok {
		t.Error("orphan model must not create a manufacturer")
	}
}
