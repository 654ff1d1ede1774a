package catalog

// Default returns the questionnaire currently published for individual
// underwriting intake. Weights express favorability: 1.0 is the most
// insurable answer, 0.0 the least.
func Default() *Catalog {
	return MustNew(
		Question{
			ID:         "smoker",
			Category:   CategoryHealth,
			Type:       TypeBoolean,
			Prompt:     "Do you currently smoke or use tobacco products?",
			Required:   true,
			Importance: 2.0,
			Weights:    map[string]float64{"true": 0.2, "false": 0.95},
		},
		Question{
			ID:         "chronic_conditions",
			Category:   CategoryHealth,
			Type:       TypeChoice,
			Prompt:     "Have you been diagnosed with a chronic condition?",
			Required:   true,
			Importance: 2.0,
			Choices:    []string{"none", "managed", "unmanaged"},
			Weights:    map[string]float64{"none": 0.95, "managed": 0.5, "unmanaged": 0.15},
		},
		Question{
			ID:         "hospitalized_recently",
			Category:   CategoryHealth,
			Type:       TypeBoolean,
			Prompt:     "Have you been hospitalized in the last 24 months?",
			Required:   true,
			Importance: 1.5,
			Weights:    map[string]float64{"true": 0.3, "false": 0.9},
		},
		Question{
			ID:         "self_rating",
			Category:   CategoryHealth,
			Type:       TypeRating,
			Prompt:     "How would you rate your overall health from 1 to 10?",
			Required:   true,
			Importance: 1.0,
			// Rating weight derives from the value itself.
		},
		Question{
			ID:         "alcohol",
			Category:   CategoryLifestyle,
			Type:       TypeChoice,
			Prompt:     "How often do you consume alcohol?",
			Required:   false,
			Importance: 1.0,
			Choices:    []string{"never", "occasionally", "weekly", "daily"},
			Weights:    map[string]float64{"never": 0.9, "occasionally": 0.8, "weekly": 0.55, "daily": 0.2},
		},
		Question{
			ID:         "hazardous_activity",
			Category:   CategoryLifestyle,
			Type:       TypeChoice,
			Prompt:     "Do you participate in hazardous activities?",
			Required:   false,
			Importance: 1.0,
			Choices:    []string{"none", "occasional", "regular"},
			Weights:    map[string]float64{"none": 0.9, "occasional": 0.6, "regular": 0.25},
		},
		Question{
			ID:            "weekly_exercise_hours",
			Category:      CategoryLifestyle,
			Type:          TypeNumeric,
			Prompt:        "How many hours of exercise do you get per week?",
			Required:      false,
			Importance:    0.5,
			Min:           0,
			MinSet:        true,
			Max:           100,
			MaxSet:        true,
			DefaultWeight: 0.7,
		},
		Question{
			ID:            "occupation",
			Category:      CategoryValidation,
			Type:          TypeText,
			Prompt:        "What is your occupation?",
			Required:      false,
			Importance:    0.5,
			DefaultWeight: 0.7,
		},
		Question{
			ID:            "date_of_birth",
			Category:      CategoryValidation,
			Type:          TypeDate,
			Prompt:        "What is your date of birth?",
			Required:      true,
			Importance:    0.5,
			DefaultWeight: 0.7,
		},
	)
}
