package rdf

import "strings"

// InsertData renders a SPARQL Update request adding triples.
func InsertData(triples ...Triple) string {
	return dataBlock("INSERT DATA", triples)
}

// DeleteData renders a SPARQL Update request removing triples. All triples
// go into a single DELETE DATA block so the store applies them at once.
func DeleteData(triples ...Triple) string {
	return dataBlock("DELETE DATA", triples)
}

func dataBlock(op string, triples []Triple) string {
	statements := make([]string, len(triples))
	for i, t := range triples {
		statements[i] = t.NT()
	}
	return op + " { " + strings.Join(statements, " ") + " } ;"
}
