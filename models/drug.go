package models

import "time"

// Drug repräsentiert genau ein eindeutig identifiziertes Molekül.
type Drug struct {
	DrugID    string    `json:"drug_id" gorm:"column:drug_id;primaryKey;size:36"`
	CreatedAt time.Time `json:"created_at"`

	// SMILES ist aktuell der einzige fachliche Schlüssel.
	Smiles string `json:"smiles" gorm:"column:smiles;uniqueIndex;not null"`

	AlternateIdentifiers []AlternateIdentifier `json:"alternate_identifiers,omitempty" gorm:"foreignKey:DrugID;references:DrugID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	GeneActions          []GeneAction          `json:"gene_actions,omitempty" gorm:"foreignKey:DrugID;references:DrugID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

// TableName gibt explizit den Tabellennamen an.
func (Drug) TableName() string {
	return "drugs"
}
