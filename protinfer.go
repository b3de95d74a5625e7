// Copyright 2024 Rob Marissen.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/524D/protinfer/internal/fdr"
	"github.com/524D/protinfer/internal/ident"
	"github.com/524D/protinfer/internal/idgraph"
	"github.com/524D/protinfer/internal/infer"
	"github.com/524D/protinfer/internal/mzidentml"
)

const progName = "protInfer"

var progVersion = `Unknown`

// Format of output, if it ever changes we should still be able to parse
// output from old versions
const outputFormatVersion = "1.0"

// CV parameters that carry a probability-like PSM score, tried in order.
// The first term that matches a score in the input file is used.
const defaultScoreFilter = "MS:1002466,MS:1002357"

const (
	infoDefault = iota
	infoSilent
	infoVerbose
)

// Command line parameters
type params struct {
	mzIdentMlFilename *string
	outFilename       *string  // Filename where the JSON inference report will be written
	configFilename    *string  // YAML file with inference parameters
	scoreFilter       *string  // PSM score CV terms to accept
	scoreIsPEP        *bool    // Scores are posterior error probabilities (prob = 1-score)
	decoyPrefix       *string  // Accession prefix marking decoy proteins
	annotateGroups    *bool    // Only annotate indistinguishable groups, no inference
	extendedModel     *bool    // Per-run evidence restructuring
	topPSMs           *int     // Number of PSMs per spectrum to use (0 = all)
	workers           *int     // Concurrently solved components (0 = number of CPUs)
	verbosity         int      // Verbosity of progress messages (infoDefault...)
	args              []string // Additional values passed on the command line
	debug             bool     // Enable debug info (environment variable PROTINFER_DEBUG=1)
}

// proteinReport is one line of the JSON output
type proteinReport struct {
	Accession   string
	Decoy       bool    `json:",omitempty"`
	Probability float64 // posterior probability of presence
}

type groupReport struct {
	Accessions  []string
	Probability float64
}

type candidateReport struct {
	Alpha float64
	Beta  float64
	Gamma float64
	Value float64
}

// inferReport is the JSON output of one run
type inferReport struct {
	ProtInferVersion string
	Params           infer.Params
	BestAlpha        float64
	BestBeta         float64
	BestGamma        float64
	Candidates       []candidateReport `json:",omitempty"`
	ComponentsSolved int
	NonConverged     int               `json:",omitempty"`
	SkippedPSMs      int               `json:",omitempty"`
	Proteins         []proteinReport
	Groups           []groupReport `json:",omitempty"`
}

// scoreFromCV extracts the PSM score from the CV parameters of one
// identification. The filter terms are tried in order; a term matches on
// CV accession or on name.
func scoreFromCV(cv []mzidentml.CVParam, filter []string) (float64, bool) {
	for _, term := range filter {
		for _, p := range cv {
			if p.Accession != term && p.Name != term {
				continue
			}
			v, err := strconv.ParseFloat(p.Value, 64)
			if err != nil {
				continue
			}
			return v, true
		}
	}
	return 0, false
}

// makeStore converts the mzIdentML content into the identification store
// that inference runs on. PSMs without a recognized score are dropped
// with a warning.
func makeStore(mzID *mzidentml.MzIdentML, par params) (*ident.Store, error) {
	filter := strings.Split(*par.scoreFilter, ",")

	proteins := make([]ident.ProteinHit, 0, mzID.NumProteins())
	for i := 0; i < mzID.NumProteins(); i++ {
		p := mzID.Protein(i)
		decoy := p.Decoy ||
			(*par.decoyPrefix != "" && strings.HasPrefix(p.Accession, *par.decoyPrefix))
		proteins = append(proteins, ident.ProteinHit{Accession: p.Accession, Decoy: decoy})
	}

	// collect PSMs per spectrum, keeping the spectrum order of the file
	specIdx := make(map[string]int)
	var peptides []ident.PeptideIdentification
	noScore := 0
	for i := 0; i < mzID.NumIdents(); i++ {
		id, err := mzID.Ident(i)
		if err != nil {
			return nil, err
		}
		score, ok := scoreFromCV(id.Cv, filter)
		if !ok {
			noScore++
			continue
		}
		if *par.scoreIsPEP {
			score = 1 - score
		}
		if score < 0 {
			score = 0
		} else if score > 1 {
			score = 1
		}

		si, ok := specIdx[id.SpecID]
		if !ok {
			si = len(peptides)
			specIdx[id.SpecID] = si
			peptides = append(peptides, ident.PeptideIdentification{
				SpectrumID: id.SpecID,
				Run:        id.Run,
			})
		}
		peptides[si].Hits = append(peptides[si].Hits, ident.PSM{
			Sequence: id.PepSeq,
			Score:    score,
			Evidence: id.Accessions,
		})
	}
	if noScore > 0 {
		log.Printf("%d identifications dropped, no score matching %q found",
			noScore, *par.scoreFilter)
	}
	return ident.NewStore(proteins, peptides)
}

func makeReport(store *ident.Store, g *idgraph.Graph, cfg infer.Params,
	res infer.SearchResult) inferReport {
	rep := inferReport{
		ProtInferVersion: outputFormatVersion,
		Params:           cfg,
		BestAlpha:        res.Best.PepEmission,
		BestBeta:         res.Best.PepSpuriousEmission,
		BestGamma:        res.Best.ProtPrior,
		ComponentsSolved: res.Stats.ComponentsSolved,
		NonConverged:     res.Stats.NonConverged,
		SkippedPSMs:      g.SkippedPSMs(),
	}
	for _, c := range res.Candidates {
		rep.Candidates = append(rep.Candidates, candidateReport{
			Alpha: c.Model.PepEmission,
			Beta:  c.Model.PepSpuriousEmission,
			Gamma: c.Model.ProtPrior,
			Value: c.Value,
		})
	}
	for _, p := range store.ScoredProteins() {
		rep.Proteins = append(rep.Proteins, proteinReport{
			Accession:   p.Accession,
			Decoy:       p.Decoy,
			Probability: p.Score,
		})
	}
	for _, grp := range store.Groups {
		rep.Groups = append(rep.Groups, groupReport{
			Accessions:  grp.Accessions,
			Probability: grp.Probability,
		})
	}
	return rep
}

func writeReport(rep inferReport, par params) error {
	f, err := os.Create(*par.outFilename)
	if err != nil {
		return err
	}
	defer f.Close()
	e := json.NewEncoder(f)
	e.SetIndent(``, `  `) // Make output easier to read for humans
	return e.Encode(rep)
}

// doInfer runs the whole pipeline on one mzIdentML file
func doInfer(par params) {
	cfg, err := loadConfig(*par.configFilename)
	if err != nil {
		log.Fatalf("loadConfig: error return %v", err)
	}
	mergeFlags(&cfg, par, flagsSet())
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid parameters: %v", err)
	}

	f, err := os.Open(*par.mzIdentMlFilename)
	if err != nil {
		log.Fatalf("Open: mzIdentMl file %v", err)
	}
	defer f.Close()
	mzID, err := mzidentml.Read(f)
	if err != nil {
		log.Fatalf("mzidentml.Read: error return %v", err)
	}
	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr, "Read %d identifications for %d proteins from %s\n",
			mzID.NumIdents(), mzID.NumProteins(), *par.mzIdentMlFilename)
	}

	store, err := makeStore(&mzID, par)
	if err != nil {
		log.Fatalf("makeStore: error return %v", err)
	}

	g, res, err := infer.Infer(store, cfg, fdr.Evaluator(cfg.Grid.AUCWeight))
	if err != nil {
		log.Fatalf("infer.Infer: error return %v", err)
	}
	if par.debug {
		debugLogGraph(g)
	}
	if par.verbosity == infoVerbose {
		fmt.Fprintf(os.Stderr,
			"Solved %d components (%d skipped, %d not converged), %d message updates\n",
			res.Stats.ComponentsSolved, res.Stats.ComponentsSkipped,
			res.Stats.NonConverged, res.Stats.TotalIterations)
	}

	if err := writeReport(makeReport(store, g, cfg, res), par); err != nil {
		log.Fatalf("writeReport: error return %v", err)
	}
	if par.verbosity != infoSilent {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", *par.outFilename)
	}
}

// sanatizeParams does some checks on parameters, and fills missing
// filenames if possible
func sanatizeParams(par *params) {
	exeName := filepath.Base(os.Args[0])

	if len(par.args) != 1 {
		fmt.Fprintf(os.Stderr, `Last argument must be name of mzIdentML file.
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}

	mzid := par.args[0]
	par.mzIdentMlFilename = &mzid
	var extension = filepath.Ext(mzid)
	var startName = mzid[0 : len(mzid)-len(extension)]

	if *par.outFilename == "" {
		*par.outFilename = startName + "-protinfer.json"
	}
	if *par.topPSMs < 0 {
		fmt.Fprintf(os.Stderr, `Invalid value for parameter 'toppsms'.
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}
}

func usage() {
	exeName := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr,
		`USAGE:
  %s [options] <mzIdentMLfile>

  This program computes Bayesian posterior probabilities for the proteins
  behind the peptide identifications in an mzIdentML file. Peptides,
  proteins and indistinguishable protein groups are connected in an
  evidence graph, and loopy belief propagation on the resulting factor
  graphs produces a posterior probability of presence per protein. The
  model parameters are tuned by a grid search against target/decoy
  discrimination and posterior calibration.

OPTIONS:
`, exeName)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr,
		`
ENVIRONMENT VARIABLES:
    When environment variable PROTINFER_DEBUG=1, the composition of the
    evidence graph is logged, which can help checking the behavior of %s.

USAGE EXAMPLES:
  %s yeast.mzid
    Infer protein probabilities from yeast.mzid and write the report to
    yeast-protinfer.json. Default parameters are used.

  %s -pep -scorefilter 'MS:1002054' yeast.mzid
    Idem, but read the PSM score from the MS-GF:PEP term and interpret it
    as a posterior error probability.
`, exeName, exeName, exeName)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	var par params

	par.outFilename = flag.String("o",
		"",
		"`filename` of the JSON inference report")
	par.configFilename = flag.String("config",
		"",
		"YAML `filename` with inference parameters; missing values keep their defaults")
	par.scoreFilter = flag.String("scorefilter",
		defaultScoreFilter,
		`PSM score terms to accept. Format:
<CVterm1|scorename1>[,<CVterm2|scorename2>]...
When multiple score names/CV terms are specified, the first one on the list
that matches a score in the input file will be used. Scores must be
probability-like (in [0,1], higher is better), or posterior error
probabilities combined with option "pep". The default contains terms
of some common post-search scoring software:
  MS:1002466 (PeptideShaker PSM score)
  MS:1002357 (PSM-level probability)
 `)
	par.scoreIsPEP = flag.Bool("pep", false,
		`PSM scores are posterior error probabilities; they are converted
to probabilities of correctness (1-score) before inference`)
	par.decoyPrefix = flag.String("decoyprefix",
		"DECOY_",
		"accession `prefix` marking decoy proteins, in addition to mzIdentML decoy flags")
	par.annotateGroups = flag.Bool("annotategroups", false,
		`only annotate indistinguishable protein groups, skip inference`)
	par.extendedModel = flag.Bool("extended", false,
		`separate the peptide evidence per acquisition run before inference`)
	par.topPSMs = flag.Int("toppsms", 1,
		`number of best-scoring PSMs per spectrum to use (0 = all)`)
	par.workers = flag.Int("workers", 0,
		`number of connected components solved concurrently (0 = number of CPUs)`)
	version := flag.Bool("version", false,
		`Show software version`)
	verbose := flag.Bool("verbose", false,
		`Print more verbose progress information`)
	quiet := flag.Bool("quiet", false,
		`Don't print any output except for errors`)
	flag.Usage = usage
	flag.Parse()
	if *version {
		if progVersion == `Unknown` {
			progVersion = `Unknown
Please build this program with script 'build.sh' so that the git version is shown here.`
		}
		fmt.Fprintf(os.Stderr, "%s version %s\n", progName, progVersion)
		return
	}
	if *verbose {
		par.verbosity = infoVerbose
	}
	if *quiet {
		par.verbosity = infoSilent
	}
	par.args = flag.Args()
	// Check if debug output should be enabled
	par.debug = os.Getenv("PROTINFER_DEBUG") == `1`

	sanatizeParams(&par)
	doInfer(par)
}
