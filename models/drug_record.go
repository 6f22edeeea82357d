package models

// DrugRecord ist ein validierter, getrimmter Datensatz. Er wird nur als Wert weitergereicht.
type DrugRecord struct {
	Smiles          string
	CrossReferences []CrossReference
	GeneActions     []GeneFact
	Origin          string
}

type CrossReference struct {
	Source     string
	ExternalID string
}

type GeneFact struct {
	Gene   string
	Action *string
}
