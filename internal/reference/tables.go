// Package reference holds the static lookup tables the pipeline is built
// with: city corrections, region and size rules, and the simulated economic
// and demographic reference data.
package reference

import (
	"strings"

	"github.com/sells-group/empresas-cli/internal/model"
)

// Correction maps a known-malformed city substring to its canonical name.
type Correction struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	City    string `yaml:"city" json:"city"`
}

// Tables is the immutable reference configuration injected into the
// pipeline. Corrections are matched in slice order.
type Tables struct {
	Corrections     []Correction                              `yaml:"corrections" json:"corrections"`
	Cities          []string                                  `yaml:"cities" json:"cities"`
	Regions         map[string]model.Region                   `yaml:"regions" json:"regions"`
	Economic        map[model.Region]model.EconomicIndicators `yaml:"economic" json:"economic"`
	Demographic     map[string]model.Demographics             `yaml:"demographic" json:"demographic"`
	PrincipalCities []string                                  `yaml:"principal_cities" json:"principal_cities"`
	SecondaryCities []string                                  `yaml:"secondary_cities" json:"secondary_cities"`
	HighRisk        []model.Region                            `yaml:"high_risk_regions" json:"high_risk_regions"`
	Climate         map[model.Region]string                   `yaml:"climate" json:"climate"`
	DefaultClimate  string                                    `yaml:"default_climate" json:"default_climate"`
	Placeholders    []string                                  `yaml:"placeholders" json:"placeholders"`
	Descriptions    map[string]string                         `yaml:"descriptions" json:"descriptions"`
	Constraints     map[string]string                         `yaml:"constraints" json:"constraints"`
}

// Default returns the built-in reference tables.
func Default() *Tables {
	return &Tables{
		// More specific patterns precede the shorter patterns they contain.
		Corrections: []Correction{
			{"VOGOTÁ", "BOGOTÁ"},
			{"BOGOTA%%", "BOGOTÁ"},
			{"BOGOTAAA", "BOGOTÁ"},
			{"BOGO)))T2", "BOGOTÁ"},
			{"BOGOTAAÁ", "BOGOTÁ"},
			{"SANTIAGHO DE CALY", "SANTIAGO DE CALI"},
			{"SANTIAGGOPOOO", "SANTIAGO DE CALI"},
			{"CALY", "CALI"},
			{"ZANTIAGO DE CALLI", "SANTIAGO DE CALI"},
			{"POPAYÁNOPO", "POPAYÁN"},
			{"SAN JUAN DE PPASTO", "SAN JUAN DE PASTO"},
			{"SAN JOSÉ DEL", "SAN JOSÉ DEL GUAVIARE"},
			{"SAN JOSÉ DE QÚCUTA", "SAN JOSÉ DE CÚCUTA"},
			{"LETICIHA", "LETICIA"},
			{"MANIZALESS", "MANIZALES"},
			{"P)=STO", "PASTO"},
			{"PAZT0", "PASTO"},
			{"TUNJAASSAS", "TUNJA"},
			// Short garbage token seen in the source export. It will also
			// match inside longer unrelated names (e.g. "ANGELICA").
			{"LICA", "VILLAVICENCIO"},
			{"FLORENCIATRT", "FLORENCIA"},
			{"CARTAGENA DE INDIASZZ", "CARTAGENA"},
			{"YOPAL?)=", "YOPAL"},
			{"MEDELLÍNN", "MEDELLÍN"},
		},
		Cities: []string{
			"BOGOTÁ", "MEDELLÍN", "CALI", "BARRANQUILLA", "CARTAGENA",
			"CÚCUTA", "BUCARAMANGA", "PEREIRA", "SANTA MARTA", "IBAGUÉ",
			"PASTO", "MANIZALES", "NEIVA", "VILLAVICENCIO", "MONTERÍA",
			"VALLEDUPAR", "SINCELEJO", "POPAYÁN", "TUNJA", "RIOHACHA",
			"QUIBDÓ", "ARMENIA", "FLORENCIA", "YOPAL", "LETICIA",
			"SAN JOSÉ DEL GUAVIARE", "SANTIAGO DE CALI", "SAN JUAN DE PASTO",
		},
		Regions: map[string]model.Region{
			"1": "BOGOTÁ",
			"2": "ANTIOQUIA",
			"3": "VALLE",
			"4": "ATLÁNTICO",
			"5": "BOLÍVAR",
			"6": "BOYACÁ",
			"7": "CALDAS",
			"8": "CAUCA",
			"9": "NARIÑO",
		},
		Economic: map[model.Region]model.EconomicIndicators{
			"BOGOTÁ":          {GDPPerCapita: 25.6, Unemployment: 10.2, Growth: 3.2},
			"ANTIOQUIA":       {GDPPerCapita: 18.3, Unemployment: 11.5, Growth: 2.8},
			"VALLE":           {GDPPerCapita: 17.8, Unemployment: 12.1, Growth: 2.9},
			"ATLÁNTICO":       {GDPPerCapita: 16.2, Unemployment: 13.8, Growth: 2.5},
			"BOLÍVAR":         {GDPPerCapita: 14.5, Unemployment: 14.5, Growth: 2.3},
			"BOYACÁ":          {GDPPerCapita: 13.8, Unemployment: 12.8, Growth: 2.6},
			"CALDAS":          {GDPPerCapita: 14.2, Unemployment: 13.2, Growth: 2.4},
			"CAUCA":           {GDPPerCapita: 11.5, Unemployment: 15.5, Growth: 1.8},
			"NARIÑO":          {GDPPerCapita: 10.8, Unemployment: 16.2, Growth: 1.5},
			model.RegionOther: {GDPPerCapita: 12.0, Unemployment: 14.0, Growth: 2.0},
		},
		Demographic: map[string]model.Demographics{
			"BOGOTÁ":        {Population: 8180, Density: 4200},
			"MEDELLÍN":      {Population: 2560, Density: 6800},
			"CALI":          {Population: 2250, Density: 3900},
			"BARRANQUILLA":  {Population: 1280, Density: 7200},
			"CARTAGENA":     {Population: 1040, Density: 8500},
			"BUCARAMANGA":   {Population: 580, Density: 5200},
			"PEREIRA":       {Population: 480, Density: 4800},
			"SANTA MARTA":   {Population: 520, Density: 4500},
			"IBAGUÉ":        {Population: 560, Density: 3800},
			"CÚCUTA":        {Population: 680, Density: 5100},
			"PASTO":         {Population: 450, Density: 4200},
			"MANIZALES":     {Population: 420, Density: 4500},
			"NEIVA":         {Population: 350, Density: 3800},
			"VILLAVICENCIO": {Population: 480, Density: 3200},
			"MONTERÍA":      {Population: 420, Density: 3500},
			"VALLEDUPAR":    {Population: 480, Density: 2800},
			"SINCELEJO":     {Population: 280, Density: 3100},
			"POPAYÁN":       {Population: 320, Density: 2900},
			"TUNJA":         {Population: 200, Density: 4200},
			"RIOHACHA":      {Population: 250, Density: 1800},
		},
		PrincipalCities: []string{"BOGOTÁ", "MEDELLÍN", "CALI", "BARRANQUILLA", "CARTAGENA"},
		SecondaryCities: []string{"BUCARAMANGA", "PEREIRA", "SANTA MARTA", "IBAGUÉ", "CÚCUTA"},
		HighRisk:        []model.Region{"CAUCA", "NARIÑO"},
		Climate: map[model.Region]string{
			"BOGOTÁ":          "MUY FAVORABLE",
			"ANTIOQUIA":       "FAVORABLE",
			"VALLE":           "FAVORABLE",
			"ATLÁNTICO":       "MODERADO",
			"BOLÍVAR":         "MODERADO",
			"BOYACÁ":          "MODERADO",
			"CALDAS":          "MODERADO",
			"CAUCA":           "DESFAVORABLE",
			"NARIÑO":          "DESFAVORABLE",
			model.RegionOther: "MODERADO",
		},
		DefaultClimate: "MODERADO",
		Placeholders:   []string{"NULL", "NAN", ""},
		Descriptions: map[string]string{
			model.ColGeneralManagerNames:    "Nombres del gerente general",
			model.ColGeneralManagerSurnames: "Apellidos del gerente general",
			model.ColFinanceManagerNames:    "Nombres del gerente financiero",
			model.ColFinanceManagerSurnames: "Apellidos del gerente financiero",
			model.ColCity:                   "Ciudad de la empresa",
			model.ColDANECode:               "Código DANE de la ciudad",
			model.ColPhone1:                 "Teléfono principal",
			model.ColPhone2:                 "Teléfono secundario",
		},
		Constraints: map[string]string{
			model.ColGeneralManagerNames:    "Máximo 100 caracteres, formato título",
			model.ColGeneralManagerSurnames: "Máximo 100 caracteres, formato título",
			model.ColFinanceManagerNames:    "Máximo 100 caracteres, formato título",
			model.ColFinanceManagerSurnames: "Máximo 100 caracteres, formato título",
			model.ColCity:                   "Valores normalizados de lista predefinida",
			model.ColDANECode:               "Exactamente 8 dígitos numéricos",
			model.ColPhone1:                 "10 dígitos numéricos",
			model.ColPhone2:                 "10 dígitos numéricos (opcional)",
		},
	}
}

// Correct returns the city of the first correction whose pattern occurs in
// s. Patterns are compared case-sensitively, in table order.
func (t *Tables) Correct(s string) (string, bool) {
	for _, c := range t.Corrections {
		if c.Pattern != "" && strings.Contains(s, c.Pattern) {
			return c.City, true
		}
	}
	return "", false
}

// IsPrincipal reports whether city is one of the principal cities.
func (t *Tables) IsPrincipal(city string) bool { return contains(t.PrincipalCities, city) }

// IsSecondary reports whether city is one of the secondary cities.
func (t *Tables) IsSecondary(city string) bool { return contains(t.SecondaryCities, city) }

// IsHighRisk reports whether region is in the high-risk set.
func (t *Tables) IsHighRisk(region model.Region) bool {
	for _, r := range t.HighRisk {
		if r == region {
			return true
		}
	}
	return false
}

// ClimateFor returns the business climate of a region.
func (t *Tables) ClimateFor(region model.Region) string {
	if c, ok := t.Climate[region]; ok {
		return c
	}
	return t.DefaultClimate
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
