// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// seedcore-build turns a FASTA file into a packed dataset and a word
// index ready for seedcore-seed to scan against.
package main

import (
	"fmt"
	"log"
	"os"

	"flag"

	bioalphabet "github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	"github.com/kortschak/seedcore/alphabet"
	"github.com/kortschak/seedcore/automaton"
	"github.com/kortschak/seedcore/dataset"
	"github.com/kortschak/seedcore/submat"
	"github.com/kortschak/seedcore/wordindex"
)

var (
	reads     = flag.String("reads", "", "input fasta sequence file name (required)")
	out       = flag.String("out", "", "output dataset (.esd) path (required)")
	indexPath = flag.String("index", "", "output index (.esi) path (required)")
	softmask  = flag.Bool("softmask", false, "preserve lower-case soft-masking in the dataset")

	k         = flag.Int("k", 12, "word length")
	jump      = flag.Int("jump", 1, "word scan jump")
	ambiguity = flag.Int("ambiguity", 1, "ambiguity-expansion budget (1 disables expansion)")
	saturate  = flag.Int64("saturate", 10, "desaturation additive slack over expected word frequency")
	memory    = flag.Int64("memory", 0, "memory ceiling for a single reporting pass (0: unbounded)")
	translate = flag.Bool("translate", false, "translate DNA to protein before indexing and add a reverse-complement strand")

	errFile = flag.String("err", "", "output file name for log messages (default to stderr)")
)

func main() {
	flag.Parse()
	if *reads == "" || *out == "" || *indexPath == "" {
		fmt.Fprintln(os.Stderr, "invalid argument: must have reads, out and index set")
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

	log.Printf("sniffing residue alphabet of %q", *reads)
	kind, err := sniffKind(*reads)
	if err != nil {
		log.Fatalf("failed to sniff alphabet: %v", err)
	}
	log.Printf("detected %v alphabet", kind)

	log.Printf("building dataset from %q", *reads)
	ds, err := dataset.Build([]string{*reads}, kind, *softmask)
	if err != nil {
		log.Fatalf("failed to build dataset: %v", err)
	}

	dsf, err := os.Create(*out)
	if err != nil {
		log.Fatalf("failed to create %q: %v", *out, err)
	}
	if _, err := ds.WriteTo(dsf); err != nil {
		dsf.Close()
		log.Fatalf("failed to write dataset: %v", err)
	}
	dsf.Close()

	letters := alphabet.Letters(alphabet.DNA)
	var translateFn submat.TranslateFunc
	switch {
	case *translate:
		letters = alphabet.Letters(alphabet.Protein)
		translateFn = submat.StandardCode
	case kind == alphabet.ProteinKind:
		letters = alphabet.Letters(alphabet.Protein)
	}

	auto, err := automaton.NewAlphabet(letters, *k)
	if err != nil {
		log.Fatalf("failed to build word automaton: %v", err)
	}

	log.Printf("building word index (k=%d, jump=%d) over %q", *k, *jump, *out)
	idx, err := wordindex.Build(ds, *out, wordindex.Params{
		Auto:              auto,
		AlphabetSize:      len(letters),
		Translate:         translateFn,
		WordJump:          *jump,
		WordAmbiguity:     *ambiguity,
		SaturateThreshold: *saturate,
		MemoryLimit:       *memory,
	})
	if err != nil {
		log.Fatalf("failed to build index: %v", err)
	}

	idxf, err := os.Create(*indexPath)
	if err != nil {
		log.Fatalf("failed to create %q: %v", *indexPath, err)
	}
	defer idxf.Close()
	if _, err := idx.WriteTo(idxf); err != nil {
		log.Fatalf("failed to write index: %v", err)
	}

	log.Printf("wrote dataset %q and index %q", *out, *indexPath)
}

// sniffKind peeks at path's first few sequences via the biogo FASTA reader
// to decide whether the file holds DNA or protein residues: any byte
// outside the DNA alphabet (canonical or IUPAC ambiguity) marks it protein.
func sniffKind(path string) (alphabet.Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := seqio.NewScanner(fasta.NewReader(f, linear.NewSeq("", nil, bioalphabet.DNAgapped)))
	const sampleSeqs = 4
	for n := 0; sc.Next() && n < sampleSeqs; n++ {
		s := sc.Seq().(*linear.Seq)
		for _, l := range s.Seq {
			if !alphabet.DNA.IsValid(byte(l)) {
				return alphabet.ProteinKind, nil
			}
		}
	}
	if err := sc.Error(); err != nil {
		return 0, err
	}
	return alphabet.DNAKind, nil
}
