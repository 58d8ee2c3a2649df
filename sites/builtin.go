package sites

// The built-in portal roster. Each entry is a real deployment of one of the
// two vendor platforms; flags encode the quirks observed on that deployment.
func init() {
	Register(Site{
		ID:                        "sunnyvale-ca",
		Name:                      "City of Sunnyvale Building Permits",
		Platform:                  PlatformSPA,
		BaseURL:                   "https://permits.sunnyvale.ca.gov",
		SearchPath:                "/CitizenAccess/#/search",
		AppPathPrefix:             "/CitizenAccess/#",
		CategoryLabel:             "Building",
		City:                      "Sunnyvale",
		State:                     "CA",
		DetailEnrichment:          true,
		ContractorInfoAccessible:  true,
		DateSearchSupported:       true,
		IssuedDateOverridesStatus: false,
	})

	Register(Site{
		ID:                        "mountain-view-ca",
		Name:                      "City of Mountain View Building Permits",
		Platform:                  PlatformSPA,
		BaseURL:                   "https://epermits.mountainview.gov",
		SearchPath:                "/portal/#/search",
		AppPathPrefix:             "/portal/#",
		CategoryLabel:             "Building",
		City:                      "Mountain View",
		State:                     "CA",
		DetailEnrichment:          true,
		ContractorInfoAccessible:  false,
		DateSearchSupported:       true,
		IssuedDateOverridesStatus: true,
	})

	Register(Site{
		ID:                        "santa-clara-ca",
		Name:                      "City of Santa Clara Building Permits",
		Platform:                  PlatformSPA,
		BaseURL:                   "https://aca.santaclaraca.gov",
		SearchPath:                "/CitizenAccess/#/search",
		AppPathPrefix:             "/CitizenAccess/#",
		CategoryLabel:             "Building",
		City:                      "Santa Clara",
		State:                     "CA",
		DetailEnrichment:          true,
		ContractorInfoAccessible:  true,
		DateSearchSupported:       false,
		IssuedDateOverridesStatus: false,
	})

	Register(Site{
		ID:                        "cupertino-ca",
		Name:                      "City of Cupertino Building Permits",
		Platform:                  PlatformLegacy,
		BaseURL:                   "https://permits.cupertino.org",
		SearchPath:                "/Permits/PermitSearch.aspx",
		CategoryLabel:             "Building",
		City:                      "Cupertino",
		State:                     "CA",
		DetailEnrichment:          true,
		ContractorInfoAccessible:  true,
		DateSearchSupported:       true,
		IssuedDateOverridesStatus: false,
	})

	Register(Site{
		ID:                        "campbell-ca",
		Name:                      "City of Campbell Building Permits",
		Platform:                  PlatformLegacy,
		BaseURL:                   "https://permits.campbellca.gov",
		SearchPath:                "/eTRAKiT/Search/permit.aspx",
		CategoryLabel:             "Building",
		City:                      "Campbell",
		State:                     "CA",
		DetailEnrichment:          false,
		ContractorInfoAccessible:  false,
		DateSearchSupported:       true,
		IssuedDateOverridesStatus: true,
	})

	Register(Site{
		ID:                        "los-gatos-ca",
		Name:                      "Town of Los Gatos Building Permits",
		Platform:                  PlatformLegacy,
		BaseURL:                   "https://permits.losgatosca.gov",
		SearchPath:                "/eTRAKiT/Search/permit.aspx",
		CategoryLabel:             "Building",
		City:                      "Los Gatos",
		State:                     "CA",
		DetailEnrichment:          true,
		ContractorInfoAccessible:  true,
		DateSearchSupported:       true,
		IssuedDateOverridesStatus: false,
	})
}
