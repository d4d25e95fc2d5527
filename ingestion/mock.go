package ingestion

import (
	"time"

	"github.com/kestrelhq/trendwatch/core"
)

// LoadMockSignals returns a small fixed batch of signals for seeding demo
// databases and exercising the pipeline without a live feed.
func LoadMockSignals() []*core.Signal {
	now := time.Now().UTC()

	return []*core.Signal{
		{
			Id:        "sig_001",
			Text:      "Several research blogs report unexpected emergent behaviors in multi-agent systems without explicit coordination training.",
			Timestamp: now.Add(-5 * 24 * time.Hour),
			Source:    "research_blog",
			Domain:    "emerging_technology",
			Subdomain: "ai",
			Metadata:  map[string]string{"confidence_hint": "0.6"},
		},
		{
			Id:        "sig_002",
			Text:      "Multiple startups mention rising difficulty in procuring high-end GPUs for large-scale model training.",
			Timestamp: now.Add(-15 * 24 * time.Hour),
			Source:    "tech_news",
			Domain:    "emerging_technology",
			Subdomain: "compute",
			Metadata:  map[string]string{"confidence_hint": "0.7"},
		},
		{
			Id:        "sig_003",
			Text:      "Policy drafts in several regions discuss incentives for low-energy AI inference hardware.",
			Timestamp: now.Add(-30 * 24 * time.Hour),
			Source:    "policy_update",
			Domain:    "emerging_technology",
			Subdomain: "energy",
			Metadata:  map[string]string{"confidence_hint": "0.5"},
		},
		{
			Id:        "sig_004",
			Text:      "Academic papers highlight new quantum computing algorithms that could disrupt classical encryption methods.",
			Timestamp: now.Add(-10 * 24 * time.Hour),
			Source:    "academic_journal",
			Domain:    "emerging_technology",
			Subdomain: "compute",
			Metadata:  map[string]string{"confidence_hint": "0.8"},
		},
	}
}
