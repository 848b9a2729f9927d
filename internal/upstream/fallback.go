// Binnight - Municipal Waste Collection Aggregation Proxy
// Copyright 2026 L. Roy (lroytech)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lroytech/binnight

package upstream

import "github.com/lroytech/binnight/internal/models"

// soloProvider is the display name on normalized organics records.
const soloProvider = "Solo Resource Recovery"

// FallbackInfo returns the static organics-collection guidance served
// whenever the Solo upstream cannot be reached. The content reflects
// the provider's published FOGO service details and is a complete
// answer in its own right.
func FallbackInfo() *models.FallbackCollectionInfo {
	return &models.FallbackCollectionInfo{
		ServiceType:        "Green Organics Bin (FOGO)",
		Provider:           soloProvider,
		CollectionSchedule: "Weekly collection",
		NextCollection:     "Weekly FOGO collection - Contact your council for specific dates",
		Message:            "FOGO (Food Organics and Garden Organics) weekly collection service available",
		CoverageAreas:      []string{"Cessnock", "Maitland", "Singleton"},
		Instructions: []string{
			"Use your kitchen caddy for food scraps",
			"Empty caddy contents into green organics bin",
			"Include both cooked and raw food scraps",
			"Add garden clippings and organic waste",
			"Use compostable liner bags provided by council",
		},
		WhatGoesIn: []string{
			"All food scraps (cooked and raw)",
			"Fruit and vegetable scraps",
			"Meat, fish, bones",
			"Dairy products",
			"Bread, pasta, rice",
			"Coffee grounds and tea bags",
			"Garden clippings and leaves",
			"Small branches and prunings",
		},
		WhatStaysOut: []string{
			"Plastic bags (except compostable liners)",
			"Glass, metal, or plastic containers",
			"Cat litter and pet waste",
			"Nappies",
			"Large branches",
			"Treated timber",
		},
		Contact: models.FallbackContact{
			Website:        "https://www.yourorganicsbin.com.au/",
			Note:           "For specific collection dates, service issues, or replacement caddies",
			CouncilContact: "Contact your local council for collection schedules",
		},
		Reason: "Organics upstream requires reCAPTCHA validation not yet implemented",
	}
}

// fallbackOutcome builds the organics outcome served when the live
// upstream is unreachable.
func fallbackOutcome() models.OrganicsOutcome {
	info := FallbackInfo()
	return models.OrganicsOutcome{
		Record: &models.CollectionRecord{
			ServiceType:    models.ServiceOrganics,
			Provider:       soloProvider,
			NextCollection: info.NextCollection,
			SourceStatus:   models.StatusFallback,
			Guidance:       info,
		},
		Fallback: info,
	}
}
