package models

// GeneAction verknüpft eine Drug mit einem Ziel-Gen und optional einem Wirkmechanismus.
type GeneAction struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	DrugID   string `json:"drug_id" gorm:"column:drug_id;size:36;not null;index:idx_gene_actions_unique,unique"`
	GeneName string `json:"gene_name" gorm:"column:gene_name;not null;type:text;index:idx_gene_actions_unique,unique"`

	// nil bedeutet: Ziel bekannt, Mechanismus unbekannt. Nie ein leerer String.
	Action *string `json:"action" gorm:"column:action"`

	// ActionKey spiegelt Action ("" für NULL), weil Unique-Indizes NULLs nicht vergleichen.
	ActionKey string `json:"-" gorm:"column:action_key;not null;default:'';type:text;index:idx_gene_actions_unique,unique"`
}

func (GeneAction) TableName() string { return "gene_actions" }

// NewGeneAction setzt ActionKey passend zu action.
func NewGeneAction(gene string, action *string) GeneAction {
	ga := GeneAction{GeneName: gene, Action: action}
	if action != nil {
		ga.ActionKey = *action
	}
	return ga
}

// NaturalKey ist der fachliche Schlüssel ohne Surrogat-ID.
func (g GeneAction) NaturalKey() string {
	if g.Action == nil {
		return g.GeneName + "\x00\x01"
	}
	return g.GeneName + "\x00" + *g.Action
}
