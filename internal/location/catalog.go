package location

import (
	"harvestcast/internal/config"
	"harvestcast/internal/models"
)

// DefaultCatalog is the built-in candidate set, used when no locations are
// configured. Population weights are relative selection mass, not absolute
// population figures.
func DefaultCatalog() []models.Location {
	return []models.Location{
		{ID: "fresno-us", Name: "Fresno", Country: "United States", Latitude: 36.7378, Longitude: -119.7871, PopulationWeight: 5.4, Timezone: "America/Los_Angeles"},
		{ID: "cordoba-ar", Name: "Córdoba", Country: "Argentina", Latitude: -31.4201, Longitude: -64.1888, PopulationWeight: 15.3, Timezone: "America/Argentina/Cordoba"},
		{ID: "punjab-in", Name: "Ludhiana", Country: "India", Latitude: 30.9010, Longitude: 75.8573, PopulationWeight: 16.2, Timezone: "Asia/Kolkata"},
		{ID: "harbin-cn", Name: "Harbin", Country: "China", Latitude: 45.8038, Longitude: 126.5349, PopulationWeight: 10.6, Timezone: "Asia/Shanghai"},
		{ID: "winnipeg-ca", Name: "Winnipeg", Country: "Canada", Latitude: 49.8951, Longitude: -97.1384, PopulationWeight: 7.5, Timezone: "America/Winnipeg"},
		{ID: "toulouse-fr", Name: "Toulouse", Country: "France", Latitude: 43.6047, Longitude: 1.4442, PopulationWeight: 4.9, Timezone: "Europe/Paris"},
		{ID: "goiania-br", Name: "Goiânia", Country: "Brazil", Latitude: -16.6869, Longitude: -49.2648, PopulationWeight: 14.4, Timezone: "America/Sao_Paulo"},
		{ID: "odesa-ua", Name: "Odesa", Country: "Ukraine", Latitude: 46.4825, Longitude: 30.7233, PopulationWeight: 10.1, Timezone: "Europe/Kyiv"},
		{ID: "toowoomba-au", Name: "Toowoomba", Country: "Australia", Latitude: -27.5598, Longitude: 151.9507, PopulationWeight: 1.7, Timezone: "Australia/Brisbane"},
		{ID: "nakuru-ke", Name: "Nakuru", Country: "Kenya", Latitude: -0.3031, Longitude: 36.0800, PopulationWeight: 5.7, Timezone: "Africa/Nairobi"},
		{ID: "konya-tr", Name: "Konya", Country: "Turkey", Latitude: 37.8746, Longitude: 32.4932, PopulationWeight: 8.2, Timezone: "Europe/Istanbul"},
	}
}

// CatalogFromConfig converts configured locations into models, falling back
// to the built-in catalog when none are configured.
func CatalogFromConfig(items []config.LocationConfig) []models.Location {
	if len(items) == 0 {
		return DefaultCatalog()
	}
	out := make([]models.Location, 0, len(items))
	for _, it := range items {
		out = append(out, models.Location{
			ID:               it.ID,
			Name:             it.Name,
			Country:          it.Country,
			Latitude:         it.Latitude,
			Longitude:        it.Longitude,
			PopulationWeight: it.PopulationWeight,
			Timezone:         it.Timezone,
		})
	}
	return out
}
