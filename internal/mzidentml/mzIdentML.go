package mzidentml

import (
	"encoding/xml"
	"errors"
)

// Types for parsing mzIdentML

// MzIdentML holds only the part of mzIdentML files
// in which we are interrested
type MzIdentML struct {
	pepID2PepIdx map[string]int
	evID2EvIdx   map[string]int
	dbID2SeqIdx  map[string]int
	identList    []identRef
	content      mzIdentMLContent
}

type identRef struct {
	specResultIdx int // Index into SpectrumIdentificationResult
	specIDIdx     int // Index into SpectrumIdentificationItem
}

// Protein is one entry of the searched sequence database
type Protein struct {
	Accession string
	Decoy     bool
}

// Identification is one peptide-spectrum match, with the protein
// accessions it provides evidence for
type Identification struct {
	PepSeq     string
	PepID      string
	Charge     int
	Rank       int
	SpecID     string
	Run        string
	Accessions []string
	Decoy      bool
	Cv         []CVParam
}

type mzIdentMLContent struct {
	XMLName                      xml.Name                       `xml:"MzIdentML"`
	DBSequence                   []dbSequence                   `xml:"SequenceCollection>DBSequence"`
	Peptide                      []peptide                      `xml:"SequenceCollection>Peptide"`
	PeptideEvidence              []peptideEvidence              `xml:"SequenceCollection>PeptideEvidence"`
	SpectrumIdentificationResult []spectrumIdentificationResult `xml:"DataCollection>AnalysisData>SpectrumIdentificationList>SpectrumIdentificationResult"`
}

type dbSequence struct {
	ID        string    `xml:"id,attr"`
	Accession string    `xml:"accession,attr"`
	CvPar     []CVParam `xml:"cvParam"`
}

type peptide struct {
	ID              string `xml:"id,attr"`
	PeptideSequence string
}

type peptideEvidence struct {
	ID            string `xml:"id,attr"`
	PeptideRef    string `xml:"peptide_ref,attr"`
	DBSequenceRef string `xml:"dBSequence_ref,attr"`
	IsDecoy       bool   `xml:"isDecoy,attr"`
}

type spectrumIdentificationResult struct {
	SpectrumID                 string `xml:"spectrumID,attr"`
	SpectraDataRef             string `xml:"spectraData_ref,attr"`
	SpectrumIdentificationItem []spectrumIdentificationItem
	CvPar                      []CVParam `xml:"cvParam"`
}

type spectrumIdentificationItem struct {
	ChargeState        int                  `xml:"chargeState,attr"`
	Rank               int                  `xml:"rank,attr"`
	PeptideRef         string               `xml:"peptide_ref,attr"`
	PeptideEvidenceRef []peptideEvidenceRef `xml:"PeptideEvidenceRef"`
	CvPar              []CVParam            `xml:"cvParam"`
}

type peptideEvidenceRef struct {
	PeptideEvidenceRef string `xml:"peptideEvidence_ref,attr"`
}

// CVParam is a controlled-vocabulary term attached to an identification,
// the PSM scores are in there
type CVParam struct {
	Accession     string `xml:"accession,attr"`
	Name          string `xml:"name,attr"`
	Value         string `xml:"value,attr"`
	UnitAccession string `xml:"unitAccession,attr"`
}

var (
	ErrInvalidIdentIndex = errors.New("mzIdentML: invalid identification index")
)
