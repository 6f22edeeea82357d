package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"drug-info/models"
)

// IdentityCheck prüft die Struktur eines Identitäts-Strings.
type IdentityCheck func(identity string) error

// DefaultIdentityCheck ist eine Minimalprüfung auf SMILES-Notation, keine Kanonisierung.
var DefaultIdentityCheck IdentityCheck = checkSmilesTokens

func checkSmilesTokens(identity string) error {
	if strings.IndexFunc(identity, unicode.IsSpace) >= 0 {
		return errors.New("identity string contains whitespace")
	}
	// Organic-subset- und aromatische Atome sowie Bracket-Atome
	if !strings.ContainsAny(identity, "BCNOPSFIbcnops[") {
		return errors.New("identity string contains no atom symbol")
	}
	return nil
}

// Validate prüft einen Rohdatensatz mit der Standard-Strukturprüfung.
func Validate(raw models.RawRecord) (models.DrugRecord, error) {
	return ValidateWith(raw, DefaultIdentityCheck)
}

// ValidateWith prüft einen Rohdatensatz in fester Reihenfolge und bricht beim ersten Fehler ab.
// Die Funktion ist rein: gleiche Eingabe, gleiche Ausgabe.
func ValidateWith(raw models.RawRecord, check IdentityCheck) (models.DrugRecord, error) {
	smiles := strings.TrimSpace(raw.Identity)
	if smiles == "" {
		return models.DrugRecord{}, rejectField("identity", "missing identity string")
	}
	if check != nil {
		if err := check(smiles); err != nil {
			return models.DrugRecord{}, rejectField("identity", err.Error())
		}
	}

	if len(raw.CrossReferences) == 0 && len(raw.GeneActions) == 0 {
		return models.DrugRecord{}, rejectField("cross_references,gene_actions", "record carries neither cross references nor gene actions")
	}

	facts := make([]models.GeneFact, 0, len(raw.GeneActions))
	for i, ga := range raw.GeneActions {
		gene := strings.TrimSpace(ga.Gene)
		if gene == "" {
			return models.DrugRecord{}, rejectField(fmt.Sprintf("gene_actions[%d].gene", i), "missing gene name")
		}
		facts = append(facts, models.GeneFact{Gene: gene, Action: trimAction(ga.Action)})
	}

	refs := make([]models.CrossReference, 0, len(raw.CrossReferences))
	for i, ref := range raw.CrossReferences {
		source := strings.TrimSpace(ref.Source)
		if source == "" {
			return models.DrugRecord{}, rejectField(fmt.Sprintf("cross_references[%d].source", i), "missing cross reference source")
		}
		externalID := strings.TrimSpace(ref.ExternalID)
		if externalID == "" {
			return models.DrugRecord{}, rejectField(fmt.Sprintf("cross_references[%d].external_id", i), "missing cross reference id")
		}
		refs = append(refs, models.CrossReference{Source: source, ExternalID: externalID})
	}

	return models.DrugRecord{
		Smiles:          smiles,
		CrossReferences: refs,
		GeneActions:     facts,
		Origin:          strings.TrimSpace(raw.Origin),
	}, nil
}

// trimAction kopiert die Aktion; leer nach dem Trimmen wird zu nil.
func trimAction(action *string) *string {
	if action == nil {
		return nil
	}
	a := strings.TrimSpace(*action)
	if a == "" {
		return nil
	}
	return &a
}
