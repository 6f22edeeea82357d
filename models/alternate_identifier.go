package models

// AlternateIdentifier verknüpft eine Drug mit einer Kennung aus einem externen Namensraum
// (z.B. drugbank, pubchem-compound).
type AlternateIdentifier struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	DrugID     string `json:"drug_id" gorm:"column:drug_id;size:36;not null;index:idx_alternate_identifiers_unique,unique"`
	SourceName string `json:"source_name" gorm:"column:source_name;not null;type:text;index:idx_alternate_identifiers_unique,unique;index:idx_alternate_identifiers_lookup"`
	ExternalID string `json:"external_id" gorm:"column:external_id;not null;type:text;index:idx_alternate_identifiers_unique,unique;index:idx_alternate_identifiers_lookup"`
}

func (AlternateIdentifier) TableName() string { return "alternate_identifiers" }

// NaturalKey ist der fachliche Schlüssel ohne Surrogat-ID.
func (a AlternateIdentifier) NaturalKey() string {
	return a.SourceName + "\x00" + a.ExternalID
}
