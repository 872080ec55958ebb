package models

import (
	"fmt"
	"strings"
)

// StudyField is the closed set of disciplines a faculty belongs to.
type StudyField string

// Supported study fields.
const (
	StudyFieldMechanicalEngineering StudyField = "MECHANICAL_ENGINEERING"
	StudyFieldSoftwareEngineering   StudyField = "SOFTWARE_ENGINEERING"
	StudyFieldFoodTechnology        StudyField = "FOOD_TECHNOLOGY"
	StudyFieldUrbanismArchitecture  StudyField = "URBANISM_ARCHITECTURE"
	StudyFieldVeterinaryMedicine    StudyField = "VETERINARY_MEDICINE"
)

var studyFieldNames = map[StudyField]string{
	StudyFieldMechanicalEngineering: "Mechanical Engineering",
	StudyFieldSoftwareEngineering:   "Software Engineering",
	StudyFieldFoodTechnology:        "Food Technology",
	StudyFieldUrbanismArchitecture:  "Urbanism Architecture",
	StudyFieldVeterinaryMedicine:    "Veterinary Medicine",
}

// StudyFields lists every field in declaration order.
func StudyFields() []StudyField {
	return []StudyField{
		StudyFieldMechanicalEngineering,
		StudyFieldSoftwareEngineering,
		StudyFieldFoodTechnology,
		StudyFieldUrbanismArchitecture,
		StudyFieldVeterinaryMedicine,
	}
}

// Valid reports whether f is one of the known study fields.
func (f StudyField) Valid() bool {
	_, ok := studyFieldNames[f]
	return ok
}

// String returns the display name, e.g. "Software Engineering".
func (f StudyField) String() string {
	if name, ok := studyFieldNames[f]; ok {
		return name
	}
	return string(f)
}

// ParseStudyField accepts either the display name or the constant name, ignoring case.
func ParseStudyField(raw string) (StudyField, error) {
	normalised := strings.ToUpper(strings.Join(strings.Fields(strings.ReplaceAll(raw, "_", " ")), "_"))
	field := StudyField(normalised)
	if _, ok := studyFieldNames[field]; !ok {
		return "", fmt.Errorf("unknown study field %q", raw)
	}
	return field, nil
}
