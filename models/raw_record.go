package models

// RawRecord ist ein ungeprüfter Datensatz, wie ihn eine Quelle liefert.
type RawRecord struct {
	Identity        string              `json:"identity"`
	CrossReferences []RawCrossReference `json:"cross_references"`
	GeneActions     []RawGeneAction     `json:"gene_actions"`

	// Origin benennt die Herkunft (z.B. DrugBank-Accession) für den Report.
	Origin string `json:"origin,omitempty"`
}

// RawCrossReference ist eine Kennung in einem externen Namensraum.
type RawCrossReference struct {
	Source     string `json:"source"`
	ExternalID string `json:"external_id"`
}

// RawGeneAction ist ein Gen/Wirkung-Paar. Action nil heißt "Mechanismus unbekannt".
type RawGeneAction struct {
	Gene   string  `json:"gene"`
	Action *string `json:"action"`
}
