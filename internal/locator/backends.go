package locator

import "scenekit/internal/models"

const (
	cloudinaryBase = "https://res.cloudinary.com/drcok7moc/raw/upload"
	b2Base         = "https://f003.backblazeb2.com/file/43dvcapp"
)

// DefaultBackends returns the built-in tier table.
func DefaultBackends() []models.Backend {
	return []models.Backend{
		{ID: "static-assets", Tier: models.TierPriority, URLTemplate: "/static-assets/{name}", Probeable: true},
		{ID: "cloudinary-kind", Tier: models.TierStore, URLTemplate: cloudinaryBase + "/dv-threlte/{kind}/{name}", Probeable: true},
		{ID: "cloudinary-shared", Tier: models.TierStore, URLTemplate: cloudinaryBase + "/dv-threlte/assets/{name}", Probeable: true},
		{ID: "cloudinary-root", Tier: models.TierStore, URLTemplate: cloudinaryBase + "/{name}", Probeable: true},
		{ID: "b2", Tier: models.TierStore, URLTemplate: b2Base + "/{name}", Probeable: true},
		{ID: "local-kind", Tier: models.TierLocal, URLTemplate: "/{kind}/{name}", Probeable: true},
		{ID: "local-public", Tier: models.TierLocal, URLTemplate: "/public/{name}", Probeable: true},
		{ID: "local-root", Tier: models.TierLocal, URLTemplate: "/{name}", Probeable: true},
	}
}
