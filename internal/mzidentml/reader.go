package mzidentml

import (
	"encoding/xml"
	"io"

	"golang.org/x/net/html/charset"
)

// Read reads mzIdentML content from io.reader
func Read(reader io.Reader) (MzIdentML, error) {
	var mzIdentML MzIdentML
	d := xml.NewDecoder(reader)
	d.CharsetReader = charset.NewReaderLabel
	err := d.Decode(&mzIdentML.content)
	if err != nil {
		return mzIdentML, err
	}
	mzIdentML.buildIndexes()
	mzIdentML.buildIdentList()
	return mzIdentML, err
}

func (m *MzIdentML) buildIndexes() {
	m.pepID2PepIdx = make(map[string]int, len(m.content.Peptide))
	for i, p := range m.content.Peptide {
		m.pepID2PepIdx[p.ID] = i
	}
	m.evID2EvIdx = make(map[string]int, len(m.content.PeptideEvidence))
	for i, ev := range m.content.PeptideEvidence {
		m.evID2EvIdx[ev.ID] = i
	}
	m.dbID2SeqIdx = make(map[string]int, len(m.content.DBSequence))
	for i, db := range m.content.DBSequence {
		m.dbID2SeqIdx[db.ID] = i
	}
}

func (m *MzIdentML) buildIdentList() {
	for i := range m.content.SpectrumIdentificationResult {
		for j := range m.content.SpectrumIdentificationResult[i].SpectrumIdentificationItem {
			var iRef identRef
			iRef.specIDIdx = i
			iRef.specResultIdx = j
			m.identList = append(m.identList, iRef)
		}
	}
}

// NumIdents returns the total number of identifications in the mzIdentML file
// Note that for some spectra, multiple identifications may be present
// The identifications can be accessed using the Ident() method, which takes
// an index as argument. The index runs from 0 to NumIdents()-1
func (m *MzIdentML) NumIdents() int {
	return len(m.identList)
}

// NumProteins returns the number of database sequences in the file
func (m *MzIdentML) NumProteins() int {
	return len(m.content.DBSequence)
}

// Protein returns the i'th database sequence. A sequence is considered a
// decoy if any of its peptide evidences is flagged isDecoy
func (m *MzIdentML) Protein(i int) Protein {
	db := m.content.DBSequence[i]
	var prot Protein
	prot.Accession = db.Accession
	for _, ev := range m.content.PeptideEvidence {
		if ev.DBSequenceRef == db.ID && ev.IsDecoy {
			prot.Decoy = true
			break
		}
	}
	return prot
}

// Ident returns a spectrum identification from the mzIdentML file.
// Parameter i is the index of the identification to return. The index runs
// from 0 to NumIdents()-1
func (m *MzIdentML) Ident(i int) (Identification, error) {

	var ident Identification

	if i < 0 || i >= len(m.identList) {
		return ident, ErrInvalidIdentIndex
	}
	specIDIdx := m.identList[i].specIDIdx
	specResultIdx := m.identList[i].specResultIdx

	result := &m.content.SpectrumIdentificationResult[specIDIdx]
	item := &result.SpectrumIdentificationItem[specResultIdx]
	pepIdx, ok := m.pepID2PepIdx[item.PeptideRef]
	if ok {
		ident.PepSeq = m.content.Peptide[pepIdx].PeptideSequence
		ident.PepID = m.content.Peptide[pepIdx].ID
	}
	ident.Charge = item.ChargeState
	ident.Rank = item.Rank
	ident.SpecID = result.SpectrumID
	ident.Run = result.SpectraDataRef

	// Resolve the protein accessions that this PSM provides evidence for.
	// Duplicate references to the same sequence (e.g. one evidence per
	// peptide position) are collapsed.
	seen := make(map[string]bool, len(item.PeptideEvidenceRef))
	for _, evRef := range item.PeptideEvidenceRef {
		evIdx, ok := m.evID2EvIdx[evRef.PeptideEvidenceRef]
		if !ok {
			continue
		}
		ev := &m.content.PeptideEvidence[evIdx]
		dbIdx, ok := m.dbID2SeqIdx[ev.DBSequenceRef]
		if !ok {
			continue
		}
		acc := m.content.DBSequence[dbIdx].Accession
		if !seen[acc] {
			seen[acc] = true
			ident.Accessions = append(ident.Accessions, acc)
		}
		if ev.IsDecoy {
			ident.Decoy = true
		}
	}

	// Collect CV terms/values for the identification, the scores are in there
	ident.Cv = append(ident.Cv, item.CvPar...)

	return ident, nil
}
