// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// seedcore-seed opens a dataset and its word index, seeds one or more
// query sequences against every target sequence in the dataset, and
// prints the resulting HSPs as tab-separated records.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	bioalphabet "github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"github.com/kortschak/seedcore/alphabet"
	"github.com/kortschak/seedcore/automaton"
	"github.com/kortschak/seedcore/dataset"
	"github.com/kortschak/seedcore/hsp"
	"github.com/kortschak/seedcore/submat"
	"github.com/kortschak/seedcore/wordindex"
)

var (
	indexPath   = flag.String("index", "", "input index (.esi) path (required)")
	datasetPath = flag.String("dataset", "", "input dataset (.esd) path (required)")
	query       = flag.String("query", "", "input query fasta file name (required)")
	mode        = flag.String("mode", "dna2dna", "alignment mode: dna2dna, protein2protein, protein2dna, dna2protein, codon2codon")

	threshold = flag.Int("threshold", 15, "hsp_threshold: minimum trimmed HSP score to keep")
	dropoff   = flag.Int("dropoff", 10, "hsp_dropoff: X-drop for greedy extension")
	wordLimit = flag.Int("word-limit", 0, "skip seeding from a word whose occurrence list exceeds this many hits (0: unbounded)")
	minSeeds  = flag.Int("min-seeds", 0, "drop a target's HSPSet unless it accumulates at least this many seed diagonals")

	revcompTarget = flag.Bool("revcomp-target", false, "also match the query against each target's reverse-complement strand")

	useGeneseed    = flag.Bool("geneseed", false, "run the geneseed refinement loop over the direct HSPs found")
	geneseedSpan   = flag.Int("geneseed-span", 30000, "max_target_span: geneseed's target-side search radius")
	geneseedQSpan  = flag.Int("geneseed-qspan", 200, "max_query_span: geneseed's query-side proximity radius")
	geneseedThresh = flag.Int("geneseed-threshold", 40, "geneseed_threshold: minimum score for an HSP to seed geneseed anchors")
	geneseedRepeat = flag.Int("geneseed-repeat", 2, "geneseed_repeat: minimum accumulated seeds for an HSPSet to seed geneseed anchors")

	errFile = flag.String("err", "", "output file name for log messages (default to stderr)")
)

func main() {
	flag.Parse()
	if *indexPath == "" || *datasetPath == "" || *query == "" {
		fmt.Fprintln(os.Stderr, "invalid argument: must have index, dataset and query set")
		flag.Usage()
		os.Exit(1)
	}

	if *errFile != "" {
		w, err := os.Create(*errFile)
		if err != nil {
			log.Fatalf("failed to create log file: %v", err)
		}
		defer w.Close()
		log.SetOutput(w)
	}

	idx, err := wordindex.Open(*indexPath)
	if err != nil {
		log.Fatalf("failed to open index %q: %v", *indexPath, err)
	}
	defer idx.Close()

	ds, err := dataset.Open(*datasetPath)
	if err != nil {
		log.Fatalf("failed to open dataset %q: %v", *datasetPath, err)
	}
	defer ds.Close()

	scorer, err := scorerFor(*mode)
	if err != nil {
		log.Fatalf("invalid -mode %q: %v", *mode, err)
	}

	depth := idx.Depth()
	auto, err := automaton.NewAlphabet(scanLetters(scorer.Mode), depth)
	if err != nil {
		log.Fatalf("failed to build word automaton: %v", err)
	}

	queries, err := readQueries(*query)
	if err != nil {
		log.Fatalf("failed to read query file %q: %v", *query, err)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	seqs := ds.Sequences()
	hspParam := wordindex.HSPParam{
		Auto:      auto,
		Scorer:    scorer,
		Threshold: *threshold,
		Dropoff:   *dropoff,
		WordLimit: *wordLimit,
		MinSeeds:  *minSeeds,
	}

	for _, q := range queries {
		var sets []wordindex.IndexHSPSet
		if *useGeneseed {
			sets, err = idx.GetHSPSetsGeneseed(ds, hspParam, q.seq, *revcompTarget,
				*geneseedThresh, *geneseedRepeat, *geneseedQSpan, *geneseedSpan)
		} else {
			sets, err = idx.GetHSPSets(hspParam, q.seq, *revcompTarget)
		}
		if err != nil {
			log.Fatalf("failed to seed query %q: %v", q.id, err)
		}

		for _, set := range sets {
			target := seqs[set.TargetIndex]
			tseq, err := ds.Fetch(target.ID)
			if err != nil {
				log.Fatalf("failed to fetch target %q: %v", target.ID, err)
			}
			if set.Reverse {
				tseq = alphabet.ReverseComplement(tseq)
			}

			hits, err := set.Set.Finalise(q.seq, tseq)
			if err != nil {
				log.Fatalf("failed to finalise HSPs for query %q against %q: %v", q.id, target.ID, err)
			}
			for _, h := range hits {
				fmt.Fprintf(out, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
					q.id, target.ID, h.QStart, h.TStart, h.Length, h.Score, h.CobsQ, h.CobsT)
			}
		}
	}
}

// scorerFor builds a hsp.Scorer for the named mode, using the fixed
// demonstration substitution tables: a plain match/mismatch nucleic
// matrix and the diagonal-dominant protein matrix, composed through the
// standard genetic code for translated modes.
func scorerFor(name string) (hsp.Scorer, error) {
	dna := submat.Nucleic(2, -1).Score
	protein := submat.Blosum62Like.Score
	switch name {
	case "dna2dna":
		return hsp.Scorer{Mode: hsp.DNA2DNA, DNA: dna}, nil
	case "protein2protein":
		return hsp.Scorer{Mode: hsp.Protein2Protein, Protein: protein}, nil
	case "protein2dna":
		return hsp.Scorer{Mode: hsp.Protein2DNA, Protein: protein, Translate: submat.StandardCode}, nil
	case "dna2protein":
		return hsp.Scorer{Mode: hsp.DNA2Protein, Protein: protein, Translate: submat.StandardCode}, nil
	case "codon2codon":
		return hsp.Scorer{Mode: hsp.Codon2Codon, Protein: protein, Translate: submat.StandardCode}, nil
	default:
		return hsp.Scorer{}, fmt.Errorf("unknown mode %q", name)
	}
}

// scanLetters returns the alphabet the word automaton scans: the query's
// own residues for an untranslated or protein-query mode, DNA bases for a
// DNA-query mode, since the automaton always scans in the query's native
// alphabet (spec.md §4.I's loader-per-mode "DNA / protein / codon").
func scanLetters(mode hsp.Mode) []byte {
	switch mode {
	case hsp.Protein2Protein, hsp.Protein2DNA:
		return alphabet.Letters(alphabet.Protein)
	default:
		return alphabet.Letters(alphabet.DNA)
	}
}

type queryRecord struct {
	id  string
	seq []byte
}

// readQueries reads every record of a FASTA file via the biogo reader
// (the external FASTA-parsing collaborator spec.md §1 places out of
// scope), returning each sequence's raw upper-case residues.
func readQueries(path string) ([]queryRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := seqio.NewScanner(fasta.NewReader(f, linear.NewSeq("", nil, bioalphabet.DNAgapped)))
	var out []queryRecord
	for sc.Next() {
		s := sc.Seq().(*linear.Seq)
		raw := make([]byte, len(s.Seq))
		for i, l := range s.Seq {
			raw[i] = byte(l)
		}
		out = append(out, queryRecord{id: s.Name(), seq: raw})
	}
	if err := sc.Error(); err != nil {
		return nil, err
	}
	return out, nil
}
