// Copyright ©2015 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/kortschak/seedcore"
	"github.com/kortschak/seedcore/alphabet"
)

func writeFasta(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestBuildWriteOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p1 := writeFasta(t, dir, "a.fa", ">seq1 first sequence\nACGTACGTAC\nGTACGTACGT\nACGT\n>seq2\nTTTTNNNNAA\nAAAAAAAAAA\n")
	p2 := writeFasta(t, dir, "b.fa", ">seq3 second file\nacgtACGTac\ngtACGT\n")

	d, err := Build([]string{p1, p2}, alphabet.DNAKind, true)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer d.Close()

	if d.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", d.Len())
	}

	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	out := filepath.Join(dir, "db.esd")
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(out)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()

	if reopened.Len() != d.Len() {
		t.Fatalf("reopened Len() = %d, want %d", reopened.Len(), d.Len())
	}
	if reopened.Kind() != d.Kind() || reopened.Softmasked() != d.Softmasked() {
		t.Fatalf("reopened kind/softmask mismatch: %v/%v want %v/%v",
			reopened.Kind(), reopened.Softmasked(), d.Kind(), d.Softmasked())
	}

	for _, s := range d.Sequences() {
		got, err := reopened.Fetch(s.ID)
		if err != nil {
			t.Fatalf("Fetch(%q) after reopen: %v", s.ID, err)
		}
		want, err := d.Fetch(s.ID)
		if err != nil {
			t.Fatalf("Fetch(%q) on original: %v", s.ID, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("sequence %q mismatch after round trip:\n got  %q\n want %q", s.ID, got, want)
		}
		if err := reopened.Verify(s.ID); err != nil {
			t.Errorf("Verify(%q) after reopen: %v", s.ID, err)
		}
	}
}

func TestFetchMatchesSourceResidues(t *testing.T) {
	dir := t.TempDir()
	p := writeFasta(t, dir, "a.fa", ">x\nACGTACGTAC\nGTACGTACGT\nACGT\n")
	d, err := Build([]string{p}, alphabet.DNAKind, false)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	got, err := d.Fetch("x")
	if err != nil {
		t.Fatal(err)
	}
	want := "ACGTACGTACGTACGTACGTACGT"
	if string(got) != want {
		t.Fatalf("Fetch = %q, want %q", got, want)
	}

	mid, err := d.FetchRange("x", 4, 6)
	if err != nil {
		t.Fatal(err)
	}
	if string(mid) != want[4:10] {
		t.Fatalf("FetchRange = %q, want %q", mid, want[4:10])
	}
}

func TestBuildDuplicateID(t *testing.T) {
	dir := t.TempDir()
	p := writeFasta(t, dir, "a.fa", ">x\nACGT\n>x\nTTTT\n")
	_, err := Build([]string{p}, alphabet.DNAKind, false)
	if err == nil {
		t.Fatal("expected error for duplicate id")
	}
	var serr *seedcore.Error
	if !errorsAs(err, &serr) || serr.Kind != seedcore.DuplicateId {
		t.Fatalf("got %v, want DuplicateId", err)
	}
}

func TestVerifyDetectsChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	p := writeFasta(t, dir, "a.fa", ">x\nACGTACGT\n")
	d, err := Build([]string{p}, alphabet.DNAKind, false)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	// Corrupt the recorded checksum directly to simulate on-disk corruption.
	d.checksums["x"] = d.checksums["x"] + 1

	err = d.Verify("x")
	if err == nil {
		t.Fatal("expected checksum mismatch")
	}
	var serr *seedcore.Error
	if !errorsAs(err, &serr) || serr.Kind != seedcore.ChecksumMismatch {
		t.Fatalf("got %v, want ChecksumMismatch", err)
	}
}

func TestPreloadFillsCache(t *testing.T) {
	dir := t.TempDir()
	p := writeFasta(t, dir, "a.fa", ">x\nACGT\n>y\nTTTT\n")
	d, err := Build([]string{p}, alphabet.DNAKind, false)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	if err := d.Preload(); err != nil {
		t.Fatalf("Preload: %v", err)
	}
}

func TestPageGetAndCopyAgree(t *testing.T) {
	raw := bytes.Repeat([]byte("ACGTacgtNNNNXYZW"), pageSize/16+1)
	raw = raw[:pageSize]
	p := fillPage(raw)

	dst := make([]byte, len(raw))
	p.copy(0, dst)
	for i := range raw {
		if dst[i] != p.get(i) {
			t.Fatalf("copy/get disagree at %d: copy=%q get=%q", i, dst[i], p.get(i))
		}
	}
}

func TestNonUniformLineLengthDataset(t *testing.T) {
	dir := t.TempDir()
	// Irregular wrap widths within one record.
	p := writeFasta(t, dir, "a.fa", ">x\nACGT\nACGTACGT\nAC\n")
	d, err := Build([]string{p}, alphabet.DNAKind, false)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	got, err := d.Fetch("x")
	if err != nil {
		t.Fatal(err)
	}
	want := "ACGTACGTACGTAC"
	if string(got) != want {
		t.Fatalf("Fetch = %q, want %q", got, want)
	}
}

// TestNonUniformLineLengthSurvivesRoundTrip checks that an irregularly
// wrapped record's RawLength, and a uniformly wrapped record's own
// LineLength, both survive a WriteTo/Open round trip: each sequence's
// per-record wrap metadata must be read back exactly as built, not
// collapsed onto one dataset-wide value (which would either zero out a
// uniform record's offset arithmetic or apply the wrong wrap width to an
// irregular one).
func TestNonUniformLineLengthSurvivesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	// "irregular" has no consistent per-line width; "uniform10" wraps at 10
	// throughout; "uniform6" (a second file) wraps at a different uniform
	// width, so the dataset as a whole has no single common line length.
	p1 := writeFasta(t, dir, "a.fa", ">irregular\nACGT\nACGTACGT\nAC\n>uniform10\nACGTACGTAC\nGTACGTACGT\nACGT\n")
	p2 := writeFasta(t, dir, "b.fa", ">uniform6\nACGTAC\nGTACGT\nAC\n")

	d, err := Build([]string{p1, p2}, alphabet.DNAKind, false)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer d.Close()

	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	out := filepath.Join(dir, "db.esd")
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(out)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()

	for id, want := range map[string]string{
		"irregular": "ACGTACGTACGTAC",
		"uniform10": "ACGTACGTACGTACGTACGTACGT",
		"uniform6":  "ACGTACGTACGTAC",
	} {
		got, err := reopened.Fetch(id)
		if err != nil {
			t.Fatalf("Fetch(%q) after reopen: %v", id, err)
		}
		if string(got) != want {
			t.Errorf("Fetch(%q) after reopen = %q, want %q", id, got, want)
		}
		if err := reopened.Verify(id); err != nil {
			t.Errorf("Verify(%q) after reopen: %v", id, err)
		}
	}
}

// errorsAs is a thin wrapper kept local to avoid importing errors just for
// a single As call in tests.
func errorsAs(err error, target **seedcore.Error) bool {
	for err != nil {
		if se, ok := err.(*seedcore.Error); ok {
			*target = se
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
