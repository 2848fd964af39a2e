package core

import "slices"

// Place is a node of the static geography tree used by address selects.
type Place struct {
	Value  string
	Label  string
	Parent string
}

var (
	countries = []Place{
		{Value: "peru", Label: "Peru"},
	}
	departments = []Place{
		{Value: "lima", Label: "Lima", Parent: "peru"},
	}
	provinces = []Place{
		{Value: "lima", Label: "Lima", Parent: "lima"},
	}
	districts = []Place{
		{Value: "independencia", Label: "Independencia", Parent: "lima"},
		{Value: "comas", Label: "Comas", Parent: "lima"},
		{Value: "los-olivos", Label: "Los Olivos", Parent: "lima"},
		{Value: "san-martin-de-porres", Label: "San Martin de Porres", Parent: "lima"},
		{Value: "carabayllo", Label: "Carabayllo", Parent: "lima"},
		{Value: "puente-piedra", Label: "Puente Piedra", Parent: "lima"},
	}
	urbanSectors = []Place{
		{Value: "tahuantinsuyo", Label: "Tahuantinsuyo", Parent: "independencia"},
		{Value: "payet", Label: "Payet", Parent: "independencia"},
		{Value: "ermitano", Label: "Ermitaño", Parent: "independencia"},
		{Value: "la-union", Label: "La Unión", Parent: "independencia"},
		{Value: "industrial", Label: "Industrial", Parent: "independencia"},
		{Value: "unificada", Label: "Unificada", Parent: "independencia"},
		{Value: "collique", Label: "Collique", Parent: "comas"},
		{Value: "la-pascana", Label: "La Pascana", Parent: "comas"},
		{Value: "santa-luzmila", Label: "Santa Luzmila", Parent: "comas"},
		{Value: "pro", Label: "Pro", Parent: "los-olivos"},
		{Value: "infantas", Label: "Infantas", Parent: "los-olivos"},
		{Value: "mercurio", Label: "Mercurio", Parent: "los-olivos"},
		{Value: "condevilla", Label: "Condevilla", Parent: "san-martin-de-porres"},
		{Value: "palao", Label: "Palao", Parent: "san-martin-de-porres"},
		{Value: "el-progreso", Label: "El Progreso", Parent: "carabayllo"},
		{Value: "lomas-de-carabayllo", Label: "Lomas de Carabayllo", Parent: "carabayllo"},
		{Value: "zapallal", Label: "Zapallal", Parent: "puente-piedra"},
		{Value: "la-ensenada", Label: "La Ensenada", Parent: "puente-piedra"},
	}
)

// GeoLevel names a level of the geography tree.
type GeoLevel string

const (
	GeoCountry     GeoLevel = "country"
	GeoDepartment  GeoLevel = "department"
	GeoProvince    GeoLevel = "province"
	GeoDistrict    GeoLevel = "district"
	GeoUrbanSector GeoLevel = "urbanSector"
)

func (l GeoLevel) places() []Place {
	switch l {
	case GeoCountry:
		return countries
	case GeoDepartment:
		return departments
	case GeoProvince:
		return provinces
	case GeoDistrict:
		return districts
	case GeoUrbanSector:
		return urbanSectors
	}
	return nil
}

// GeoOptions lists the places of a level below parent. The country level
// ignores parent. Any other level without a parent yields no options.
func GeoOptions(level GeoLevel, parent string) []Option {
	var out []Option
	for _, p := range level.places() {
		if level != GeoCountry && (parent == "" || p.Parent != parent) {
			continue
		}
		out = append(out, Option{Value: p.Value, Label: p.Label})
	}
	return out
}

// UrbanSectorVisible decides whether sector may be offered for district.
// A sector is offered only when a district is selected, the sector belongs
// to it and the caller has not disabled it.
func UrbanSectorVisible(sector, district string, disabled []string) bool {
	if district == "" || slices.Contains(disabled, sector) {
		return false
	}
	for _, p := range urbanSectors {
		if p.Value == sector {
			return p.Parent == district
		}
	}
	return false
}

// UrbanSectorOptions returns the selectable sectors for district.
func UrbanSectorOptions(district string, disabled []string) []Option {
	var out []Option
	for _, p := range urbanSectors {
		if UrbanSectorVisible(p.Value, district, disabled) {
			out = append(out, Option{Value: p.Value, Label: p.Label})
		}
	}
	return out
}

// GeoLabel resolves the display label of a place value at a level.
func GeoLabel(level GeoLevel, value string) (string, bool) {
	for _, p := range level.places() {
		if p.Value == value {
			return p.Label, true
		}
	}
	return "", false
}
