package drugbank

import (
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"strings"

	"drug-info/models"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// ErrUnexpectedLayout signalisiert, dass die Seite nicht mehr dem erwarteten Aufbau entspricht.
var ErrUnexpectedLayout = errors.New("drugbank page layout changed")

// Quellen ohne brauchbare alternative Kennung
var ignoredSources = map[string]bool{
	"RxList":    true,
	"Drugs.com": true,
	"PDRhealth": true,
}

const notAvailable = "Not Available"

// ParseDrugPage wandelt eine DrugBank-Detailseite in einen Rohdatensatz um.
func ParseDrugPage(identifier string, doc *goquery.Document) (models.RawRecord, error) {
	smiles, err := parseSmiles(doc)
	if err != nil {
		return models.RawRecord{}, fmt.Errorf("%s: %w", identifier, err)
	}
	links, err := parseExternalLinks(doc)
	if err != nil {
		return models.RawRecord{}, fmt.Errorf("%s: %w", identifier, err)
	}

	refs := append([]models.RawCrossReference{{Source: "drugbank", ExternalID: identifier}}, links...)
	return models.RawRecord{
		Identity:        smiles,
		CrossReferences: refs,
		GeneActions:     parseGeneActions(doc),
		Origin:          identifier,
	}, nil
}

// parseSmiles liest den SMILES-String hinter #smiles. Cloudflare hält Teile mit "@" für
// E-Mail-Adressen und verschleiert sie, daher werden diese Spans vorher dekodiert.
func parseSmiles(doc *goquery.Document) (string, error) {
	label := doc.Find("#smiles").First()
	if label.Length() == 0 {
		return "", nil
	}
	value := label.Next()

	var decodeErr error
	value.Find(".__cf_email__").Each(func(_ int, s *goquery.Selection) {
		encoded, ok := s.Attr("data-cfemail")
		if !ok || decodeErr != nil {
			return
		}
		decoded, err := decodeCFEmail(encoded)
		if err != nil {
			decodeErr = err
			return
		}
		s.ReplaceWithHtml(html.EscapeString(decoded))
	})
	if decodeErr != nil {
		return "", fmt.Errorf("%w: smiles: %v", ErrUnexpectedLayout, decodeErr)
	}

	smiles := cleanText(value.Text())
	if smiles == notAvailable {
		return "", nil
	}
	return smiles, nil
}

// decodeCFEmail kehrt die Cloudflare-Verschleierung um: das erste Byte ist der XOR-Schlüssel.
func decodeCFEmail(encoded string) (string, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("cfemail: %w", err)
	}
	if len(raw) == 0 {
		return "", errors.New("cfemail: empty payload")
	}
	key := raw[0]
	out := make([]byte, 0, len(raw)-1)
	for _, b := range raw[1:] {
		out = append(out, b^key)
	}
	return string(out), nil
}

// parseGeneActions liefert für jedes Target mit Gen-Namen ein Paar pro Aktion.
// Targets ohne Aktionen ergeben ein Paar mit nil-Aktion, Targets ohne Gen-Namen werden übersprungen.
func parseGeneActions(doc *goquery.Document) []models.RawGeneAction {
	var pairs []models.RawGeneAction
	doc.Find("#targets .card-body").Each(func(_ int, target *goquery.Selection) {
		geneLabel := target.Find("#gene-name").First()
		if geneLabel.Length() == 0 {
			return
		}
		gene := cleanText(geneLabel.Next().Text())

		var actions []string
		if actionLabel := target.Find("#actions").First(); actionLabel.Length() > 0 {
			actionLabel.Next().Find(".badge").Each(func(_ int, badge *goquery.Selection) {
				if a := cleanText(badge.Text()); a != "" {
					actions = append(actions, a)
				}
			})
		}
		if len(actions) == 0 {
			pairs = append(pairs, models.RawGeneAction{Gene: gene})
			return
		}
		for _, a := range actions {
			action := a
			pairs = append(pairs, models.RawGeneAction{Gene: gene, Action: &action})
		}
	})
	return pairs
}

// parseExternalLinks liest die dt/dd-Paare unter #external-links.
func parseExternalLinks(doc *goquery.Document) ([]models.RawCrossReference, error) {
	label := doc.Find("#external-links").First()
	if label.Length() == 0 {
		return nil, fmt.Errorf("%w: missing #external-links", ErrUnexpectedLayout)
	}
	dl := label.Next().Find("dl").First()
	if dl.Length() == 0 {
		return nil, fmt.Errorf("%w: missing external links list", ErrUnexpectedLayout)
	}

	children := dl.Children()
	if children.Length()%2 != 0 {
		return nil, fmt.Errorf("%w: unbalanced external links list", ErrUnexpectedLayout)
	}
	var refs []models.RawCrossReference
	for i := 0; i < children.Length(); i += 2 {
		source := cleanText(children.Eq(i).Text())
		if ignoredSources[source] {
			continue
		}
		refs = append(refs, models.RawCrossReference{
			Source:     slug(source),
			ExternalID: cleanText(children.Eq(i + 1).Text()),
		})
	}
	return refs, nil
}

// cleanText normalisiert Unicode (NFKC, z.B. geschützte Leerzeichen) und fasst Whitespace zusammen.
func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

func slug(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "-"))
}
