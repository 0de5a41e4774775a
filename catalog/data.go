package catalog

// Seed catalog until the listings move into the relational store.
func defaultRobots() []Robot {
	return []Robot{
		{
			ID:            "r1",
			Name:          "Mobile Shelf AMR",
			Manufacturer:  "Locus Robotics",
			Category:      "AMR",
			Description:   "Autonomous mobile robot that brings shelves directly to workers, reducing walk time by 70%",
			Payload:       "500 lbs",
			AutonomyLevel: "Level 4",
			LeaseFrom:     "$1,299",
			UseCase:       "logistics",
			Specifications: map[string]string{
				"weight":       "120 lbs",
				"dimensions":   `36" x 24" x 48"`,
				"battery_life": "8 hours",
			},
		},
		{
			ID:            "r2",
			Name:          "Heavy Duty Pallet Bot",
			Manufacturer:  "Fetch Robotics",
			Category:      "AGV",
			Description:   "Industrial-grade pallet mover for high-volume warehouse operations",
			Payload:       "3,000 lbs",
			AutonomyLevel: "Level 4",
			LeaseFrom:     "$2,499",
			UseCase:       "logistics",
		},
		{
			ID:            "r3",
			Name:          "Agricultural Spray Drone",
			Manufacturer:  "DJI Agras",
			Category:      "Drone",
			Description:   "Cover 40 acres per hour with precision crop spraying and monitoring",
			Payload:       "10 gallons",
			AutonomyLevel: "Level 3",
			LeaseFrom:     "$899",
			UseCase:       "agriculture",
		},
	}
}

func defaultDealers() []Dealer {
	return []Dealer{
		{
			ID:          "d1",
			Name:        "RoboTech Solutions",
			Coverage:    "California, Nevada, Arizona",
			Address:     "1234 Innovation Dr, San Francisco, CA 94105",
			Phone:       "(415) 555-0123",
			Email:       "sales@robotechsolutions.com",
			Specialties: []string{"AMRs", "AGVs", "Warehouse Automation"},
			ZipCodes:    []string{"94105", "94102", "89101", "85001"},
		},
		{
			ID:          "d2",
			Name:        "AgriBot Distributors",
			Coverage:    "Midwest States",
			Address:     "5678 Harvest Ln, Des Moines, IA 50309",
			Phone:       "(515) 555-0456",
			Email:       "info@agribotdist.com",
			Specialties: []string{"Agricultural Drones", "Crop Monitoring", "Precision Spraying"},
			ZipCodes:    []string{"50309", "68101", "64101", "55401"},
		},
	}
}
