package services

import "drug-info/models"

// DrugCandidate ist die Drug-Zeile vor der Identitätsauflösung.
type DrugCandidate struct {
	Smiles string
}

// NormalizedRowSet enthält alle Zeilen, die aus einem validierten Datensatz entstehen.
// DrugID ist in den Kindzeilen noch leer.
type NormalizedRowSet struct {
	Drug                 DrugCandidate
	AlternateIdentifiers []models.AlternateIdentifier
	GeneActions          []models.GeneAction
	Origin               string
}

// Normalize leitet die Zeilen für drugs, alternate_identifiers und gene_actions ab.
// Exakte Duplikate innerhalb des Datensatzes werden entfernt, die Reihenfolge bleibt erhalten.
func Normalize(rec models.DrugRecord) NormalizedRowSet {
	set := NormalizedRowSet{
		Drug:   DrugCandidate{Smiles: rec.Smiles},
		Origin: rec.Origin,
	}

	seenRefs := make(map[string]struct{}, len(rec.CrossReferences))
	for _, ref := range rec.CrossReferences {
		row := models.AlternateIdentifier{SourceName: ref.Source, ExternalID: ref.ExternalID}
		if _, ok := seenRefs[row.NaturalKey()]; ok {
			continue
		}
		seenRefs[row.NaturalKey()] = struct{}{}
		set.AlternateIdentifiers = append(set.AlternateIdentifiers, row)
	}

	seenGenes := make(map[string]struct{}, len(rec.GeneActions))
	for _, fact := range rec.GeneActions {
		var action *string
		if fact.Action != nil {
			a := *fact.Action
			action = &a
		}
		row := models.NewGeneAction(fact.Gene, action)
		if _, ok := seenGenes[row.NaturalKey()]; ok {
			continue
		}
		seenGenes[row.NaturalKey()] = struct{}{}
		set.GeneActions = append(set.GeneActions, row)
	}

	return set
}

// WithDrugID gibt eine Kopie des Sets zurück, deren Kindzeilen auf drugID zeigen.
func (s NormalizedRowSet) WithDrugID(drugID string) NormalizedRowSet {
	out := s
	out.AlternateIdentifiers = make([]models.AlternateIdentifier, len(s.AlternateIdentifiers))
	for i, row := range s.AlternateIdentifiers {
		row.DrugID = drugID
		out.AlternateIdentifiers[i] = row
	}
	out.GeneActions = make([]models.GeneAction, len(s.GeneActions))
	for i, row := range s.GeneActions {
		row.DrugID = drugID
		out.GeneActions[i] = row
	}
	return out
}
